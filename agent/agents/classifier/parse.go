package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
)

var taskSynonyms = map[string]contractx.TaskType{
	"catalog_search":      contractx.TaskCatalogSearch,
	"catalog":             contractx.TaskCatalogSearch,
	"search":              contractx.TaskCatalogSearch,
	"product_search":      contractx.TaskCatalogSearch,
	"shopping_list_agent": contractx.TaskCatalogSearch,
	"cart":                contractx.TaskCart,
	"cart_agent":          contractx.TaskCart,
	"basket":              contractx.TaskCart,
	"order":               contractx.TaskOrder,
	"orders":              contractx.TaskOrder,
	"checkout":            contractx.TaskOrder,
	"order_agent":         contractx.TaskOrder,
	"general":             contractx.TaskGeneral,
	"general_agent":       contractx.TaskGeneral,
}

// ParseDecision reads a routing decision out of raw model output. It accepts
// a JSON object (optionally fenced or surrounded by prose) keyed by task_type,
// agent or intent, or a bare task word.
func ParseDecision(raw string) (contractx.RoutingDecision, error) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return contractx.RoutingDecision{}, fmt.Errorf("%w: empty output", contractx.ErrSchemaViolation)
	}

	obj, ok := firstJSONObject(text)
	if !ok {
		task, ok := normalizeTask(text)
		if !ok {
			return contractx.RoutingDecision{}, fmt.Errorf("%w: no json object or task word in %q", contractx.ErrSchemaViolation, truncate(text, 80))
		}
		return contractx.RoutingDecision{TaskType: task, Confidence: 1, Reasoning: "bare task word"}, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return contractx.RoutingDecision{}, fmt.Errorf("%w: decode json: %v", contractx.ErrSchemaViolation, err)
	}

	var label string
	for _, key := range []string{"task_type", "agent", "intent"} {
		if v, ok := fields[key].(string); ok && strings.TrimSpace(v) != "" {
			label = v
			break
		}
	}
	task, ok := normalizeTask(label)
	if !ok {
		return contractx.RoutingDecision{}, fmt.Errorf("%w: unknown task %q", contractx.ErrSchemaViolation, label)
	}

	reasoning, _ := fields["reasoning"].(string)
	return contractx.RoutingDecision{
		TaskType:   task,
		Confidence: parseConfidence(fields["confidence"]),
		Reasoning:  strings.TrimSpace(reasoning),
	}, nil
}

func normalizeTask(label string) (contractx.TaskType, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.Trim(s, "\"'`.!: \n\t")
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	task, ok := taskSynonyms[s]
	return task, ok
}

// parseConfidence clamps to [0,1]. A missing value counts as 1; an
// unreadable or non-finite one as 0.
func parseConfidence(v any) float64 {
	var f float64
	switch c := v.(type) {
	case nil:
		return 1
	case float64:
		f = c
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// firstJSONObject returns the first balanced {...} span, honouring strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
