package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	statex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/state"
)

var (
	ErrInvalidThread  = statex.ErrInvalidThread
	ErrInvalidUser    = statex.ErrInvalidUser
	ErrInvalidMessage = errors.New("utterance is empty")
	ErrThreadOwner    = errors.New("thread belongs to another user")
)

type GraphInput struct {
	ThreadID  string
	UserID    int64
	Utterance string
}

type GraphState struct {
	ThreadID  string
	UserID    int64
	Utterance string
	Now       time.Time

	Session *statex.Session
	// Transient sessions could not be loaded and are never saved, so an
	// existing history is not overwritten.
	Transient bool
	History   []statex.Turn

	Decision contractx.RoutingDecision
	Output   contractx.HandlerOutput
	// Degraded is set when the reply is an apology for a failed component.
	Degraded bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, ErrInvalidThread
	}
	if in.UserID <= 0 {
		return nil, ErrInvalidUser
	}

	utterance := strings.TrimSpace(in.Utterance)
	if utterance == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ThreadID:  threadID,
		UserID:    in.UserID,
		Utterance: utterance,
		Now:       nowFn().UTC(),
	}, nil
}
