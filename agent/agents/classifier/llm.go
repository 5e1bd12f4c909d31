package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

const (
	DefaultTimeout       = 4 * time.Second
	DefaultHistoryWindow = 6
	DefaultMinConfidence = 0.35
)

var taskDescriptions = map[contractx.TaskType]string{
	contractx.TaskCatalogSearch: "find or browse products in the catalog",
	contractx.TaskCart:          "add, remove or review items in the shopping cart",
	contractx.TaskOrder:         "place an order from the cart, list orders or cancel one",
	contractx.TaskGeneral:       "greetings, thanks, help and anything else",
}

type Option func(*LLMClassifier)

func WithTimeout(d time.Duration) Option {
	return func(c *LLMClassifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHistoryWindow(n int) Option {
	return func(c *LLMClassifier) {
		if n >= 0 {
			c.historyWindow = n
		}
	}
}

func WithMinConfidence(v float64) Option {
	return func(c *LLMClassifier) {
		if v >= 0 && v <= 1 {
			c.minConfidence = v
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *LLMClassifier) {
		c.logger = l
	}
}

// LLMClassifier asks an Inferer for the task type and treats the answer as
// untrusted text.
type LLMClassifier struct {
	inferer       contractx.Inferer
	system        string
	timeout       time.Duration
	historyWindow int
	minConfidence float64
	logger        zerolog.Logger
}

var _ contractx.Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(inferer contractx.Inferer, opts ...Option) (*LLMClassifier, error) {
	if inferer == nil {
		return nil, fmt.Errorf("%w: inferer is required", contractx.ErrValidation)
	}
	tmpl := promptx.LoadPromptSet().Classifier
	if tmpl == "" {
		return nil, fmt.Errorf("%w: classifier", contractx.ErrPromptMissing)
	}

	c := &LLMClassifier{
		inferer:       inferer,
		system:        strings.Replace(tmpl, promptx.TasksPlaceholder, renderTaskCatalog(), 1),
		timeout:       DefaultTimeout,
		historyWindow: DefaultHistoryWindow,
		minConfidence: DefaultMinConfidence,
		logger:        log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, utterance string, recent []statex.Turn) contractx.RoutingDecision {
	if strings.TrimSpace(utterance) == "" {
		return contractx.GeneralFallback("empty utterance")
	}
	prompt := c.buildPrompt(utterance, recent)

	raw, err := c.infer(ctx, prompt)
	if err != nil {
		c.logger.Warn().Err(err).Msg("classifier retrying inference")
		raw, err = c.infer(ctx, prompt)
	}
	if err != nil {
		c.logger.Error().Err(err).Msg("classifier inference failed, routing to general")
		return contractx.GeneralFallback("inference failed")
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("classifier output rejected")
		return contractx.GeneralFallback("unparseable classifier output")
	}
	if decision.Confidence < c.minConfidence {
		c.logger.Debug().
			Str("task_type", decision.TaskType.String()).
			Float64("confidence", decision.Confidence).
			Msg("classifier confidence below threshold")
		return contractx.RoutingDecision{
			TaskType:   contractx.TaskGeneral,
			Confidence: decision.Confidence,
			Reasoning:  fmt.Sprintf("low confidence for %s", decision.TaskType),
		}
	}
	return decision
}

func (c *LLMClassifier) infer(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.inferer.Infer(callCtx, prompt)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", contractx.ErrModelInvoke, c.timeout)
		}
		return "", err
	}
	return out, nil
}

func (c *LLMClassifier) buildPrompt(utterance string, recent []statex.Turn) string {
	var b strings.Builder
	b.WriteString(c.system)

	turns := recent
	if len(turns) > c.historyWindow {
		turns = turns[len(turns)-c.historyWindow:]
	}
	b.WriteString("\n\nRecent conversation:\n")
	if len(turns) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range turns {
		b.WriteString(string(t.Role))
		if t.TaskType != "" {
			b.WriteString(" [")
			b.WriteString(t.TaskType)
			b.WriteString("]")
		}
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(t.Text))
		b.WriteString("\n")
	}

	b.WriteString("\nUtterance: ")
	b.WriteString(strings.TrimSpace(utterance))
	return b.String()
}

func renderTaskCatalog() string {
	var b strings.Builder
	for i, task := range contractx.TaskTypes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s.", task, taskDescriptions[task])
		infos := toolx.Infos(toolx.ForTask(task)...)
		if len(infos) == 0 {
			b.WriteString(" No tools.")
			continue
		}
		b.WriteString(" Tools:")
		for _, info := range infos {
			fmt.Fprintf(&b, "\n    - %s: %s", info.Name, info.Desc)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
