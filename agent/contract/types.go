package contract

import (
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

type TaskType string

const (
	TaskCatalogSearch TaskType = "catalog_search"
	TaskCart          TaskType = "cart"
	TaskOrder         TaskType = "order"
	TaskGeneral       TaskType = "general"
)

// TaskTypes lists every routable task in catalog order.
var TaskTypes = []TaskType{TaskCatalogSearch, TaskCart, TaskOrder, TaskGeneral}

func (t TaskType) Valid() bool {
	switch t {
	case TaskCatalogSearch, TaskCart, TaskOrder, TaskGeneral:
		return true
	default:
		return false
	}
}

func (t TaskType) String() string {
	return string(t)
}

type RoutingDecision struct {
	TaskType   TaskType `json:"task_type"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
	// Fallback marks a decision produced by the failure path.
	Fallback bool `json:"fallback,omitempty"`
}

// GeneralFallback is the decision used whenever classification fails.
func GeneralFallback(reason string) RoutingDecision {
	return RoutingDecision{TaskType: TaskGeneral, Confidence: 0, Reasoning: reason, Fallback: true}
}

// ToolCall records one tool invocation. Not persisted.
type ToolCall struct {
	Tool    string `json:"tool"`
	Args    any    `json:"args,omitempty"`
	Result  any    `json:"result,omitempty"`
	ErrKind string `json:"error_kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HandlerRequest struct {
	Utterance    string
	UserID       int64
	ThreadID     string
	History      []statex.Turn
	LastPayload  *statex.Payload
	LastProducts *statex.Payload
	Decision     RoutingDecision
}

type HandlerOutput struct {
	Reply     string          `json:"reply"`
	Payload   *statex.Payload `json:"payload,omitempty"`
	TaskType  TaskType        `json:"task_type"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
}

type TurnResult struct {
	ThreadID  string          `json:"thread_id"`
	SessionID string          `json:"session_id"`
	Reply     string          `json:"reply"`
	TaskType  TaskType        `json:"task_type"`
	Payload   *statex.Payload `json:"structured_payload,omitempty"`
	// Degraded marks an apology reply for a failed handler.
	Degraded bool `json:"-"`
}
