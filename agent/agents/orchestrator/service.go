package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	nodex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/nodes"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

var (
	ErrInvalidThread  = nodex.ErrInvalidThread
	ErrInvalidUser    = nodex.ErrInvalidUser
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrThreadOwner    = nodex.ErrThreadOwner
)

const DefaultHistoryWindow = 6

type Option func(*Orchestrator)

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

func WithHistoryWindow(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.historyWindow = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs one turn as validate → load → classify → dispatch →
// persist → respond. Turns for the same thread never overlap.
type Orchestrator struct {
	store      statex.Store
	classifier contractx.Classifier
	handlers   contractx.Registry

	graphRunner compose.Runnable[nodex.GraphInput, contractx.TurnResult]
	locks       *threadLocks

	historyWindow int
	logger        zerolog.Logger
	now           func() time.Time
}

func New(
	store statex.Store,
	classifier contractx.Classifier,
	handlers contractx.Registry,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if handlers == nil {
		return nil, errors.New("handler registry is required")
	}

	o := &Orchestrator{
		store:         store,
		classifier:    classifier,
		handlers:      handlers,
		locks:         newThreadLocks(),
		historyWindow: DefaultHistoryWindow,
		logger:        log.Logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileProcessTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// ProcessTurn handles one utterance. Only input errors (and a caller giving
// up while waiting for the thread) are returned; every other failure becomes
// an apology reply. Mutating tools are not idempotent, so re-submitting a
// turn after a timeout may repeat a cart or order change.
func (o *Orchestrator) ProcessTurn(ctx context.Context, threadID string, userID int64, utterance string) (contractx.TurnResult, error) {
	key := strings.TrimSpace(threadID)
	if key == "" {
		return contractx.TurnResult{}, ErrInvalidThread
	}

	unlock, err := o.locks.acquire(ctx, key)
	if err != nil {
		return contractx.TurnResult{}, fmt.Errorf("wait for thread %s: %w", key, err)
	}
	defer unlock()

	started := time.Now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ThreadID:  key,
		UserID:    userID,
		Utterance: utterance,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}

	o.logger.Info().
		Str("thread_id", out.ThreadID).
		Int64("user_id", userID).
		Str("task_type", out.TaskType.String()).
		Bool("degraded", out.Degraded).
		Dur("duration", time.Since(started)).
		Msg("turn processed")
	return out, nil
}
