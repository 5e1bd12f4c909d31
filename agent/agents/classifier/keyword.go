package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
)

type keyword struct {
	re     *regexp.Regexp
	weight float64
}

func kw(pattern string, weight float64) keyword {
	return keyword{re: regexp.MustCompile(`(?i)\b(?:` + pattern + `)\b`), weight: weight}
}

// Ties are broken by position in this list.
var keywordRules = []struct {
	task     contractx.TaskType
	keywords []keyword
}{
	{
		task: contractx.TaskCart,
		keywords: []keyword{
			kw(`add|put|throw in`, 3),
			kw(`cart|basket|bag`, 3),
			kw(`remove|delete|take out|drop`, 3),
			kw(`buy|grab|get me`, 2),
			kw(`quantity|qty|units?|another`, 1),
		},
	},
	{
		task: contractx.TaskOrder,
		keywords: []keyword{
			kw(`orders?`, 3),
			kw(`check ?out|place|purchase|pay`, 3),
			kw(`cancel`, 3),
			kw(`track|delivery|delivered|shipped|shipping|status`, 2),
		},
	},
	{
		task: contractx.TaskCatalogSearch,
		keywords: []keyword{
			kw(`search|find|look(?:ing)? for|browse`, 3),
			kw(`do you (?:have|sell|carry)|show me|recommend|suggest`, 2),
			kw(`i'?d like|i want|i need`, 1),
			kw(`under|below|cheaper|cheap|less than|budget`, 1),
			kw(`shoe|sneaker|mouse|laptop|scarf|scarves|watch|product|item`, 1),
		},
	},
	{
		task: contractx.TaskGeneral,
		keywords: []keyword{
			kw(`hello|hi|hey|good (?:morning|afternoon|evening)`, 3),
			kw(`thanks|thank you|cheers|bye|goodbye`, 3),
			kw(`help|what can you do|who are you`, 3),
		},
	},
}

var referencePattern = regexp.MustCompile(`(?i)\b(?:first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth|last|\d+(?:st|nd|rd|th)|that|this one|it|them|those)\b`)

// KeywordClassifier routes with weighted keyword groups. A bare reference
// such as "the first one" follows the previous agent turn.
type KeywordClassifier struct{}

var _ contractx.Classifier = KeywordClassifier{}

func NewKeywordClassifier() KeywordClassifier {
	return KeywordClassifier{}
}

func (KeywordClassifier) Classify(_ context.Context, utterance string, recent []statex.Turn) contractx.RoutingDecision {
	text := strings.TrimSpace(utterance)
	if text == "" {
		return contractx.GeneralFallback("empty utterance")
	}

	stemmed := stemText(text)

	var (
		best      contractx.TaskType
		bestScore float64
		total     float64
	)
	for _, rule := range keywordRules {
		score := 0.0
		for _, k := range rule.keywords {
			if k.re.MatchString(text) || k.re.MatchString(stemmed) {
				score += k.weight
			}
		}
		total += score
		if score > bestScore {
			best, bestScore = rule.task, score
		}
	}

	if bestScore == 0 {
		if referencePattern.MatchString(text) {
			if task, ok := followUpTask(recent); ok {
				return contractx.RoutingDecision{
					TaskType:   task,
					Confidence: 0.6,
					Reasoning:  "reference resolved against the previous turn",
				}
			}
		}
		return contractx.RoutingDecision{
			TaskType:   contractx.TaskGeneral,
			Confidence: 0.3,
			Reasoning:  "no keyword matched",
		}
	}

	return contractx.RoutingDecision{
		TaskType:   best,
		Confidence: bestScore / total,
		Reasoning:  fmt.Sprintf("keyword score %.0f of %.0f", bestScore, total),
	}
}

// stemText rewrites every word to its singular stem so that keywords need
// only their singular form.
func stemText(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	for i, f := range fields {
		fields[i] = storex.Stem(strings.Trim(f, ".,!?;:\""))
	}
	return strings.Join(fields, " ")
}

func followUpTask(recent []statex.Turn) (contractx.TaskType, bool) {
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != statex.RoleAgent {
			continue
		}
		switch contractx.TaskType(recent[i].TaskType) {
		case contractx.TaskCatalogSearch, contractx.TaskCart:
			return contractx.TaskCart, true
		case contractx.TaskOrder:
			return contractx.TaskOrder, true
		default:
			return "", false
		}
	}
	return "", false
}
