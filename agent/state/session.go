package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the per-thread conversation record. History is append-only and
// ThreadID is the persistence key.
type Session struct {
	// Identity
	SessionID string `json:"session_id"`
	ThreadID  string `json:"thread_id"`
	UserID    int64  `json:"user_id"`

	History []Turn `json:"history"`

	// Continuity for follow-up turns ("add the first one").
	LastTaskType string   `json:"last_task_type,omitempty"`
	LastPayload  *Payload `json:"last_payload,omitempty"`
	// LastProducts is the most recent products payload. Cart and order
	// turns leave it in place.
	LastProducts *Payload `json:"last_products,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	TaskType  string    `json:"task_type,omitempty"` // agent turns only
	Timestamp time.Time `json:"timestamp"`
}

var (
	ErrInvalidThread = errors.New("thread id is empty")
	ErrInvalidUser   = errors.New("user id must be positive")
	ErrInvalidTurn   = errors.New("invalid turn")
)

func NewSession(threadID string, userID int64, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		SessionID: uuid.NewString(),
		ThreadID:  threadID,
		UserID:    userID,
		History:   make([]Turn, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendTurn adds a turn to the end of the history.
func (s *Session) AppendTurn(t Turn) {
	t.Timestamp = t.Timestamp.UTC()
	if t.Role == RoleUser {
		t.TaskType = ""
	}
	s.History = append(s.History, t)
}

// Recent returns a copy of the last n turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	if s == nil || n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]Turn(nil), s.History...)
	out.LastPayload = s.LastPayload.Clone()
	out.LastProducts = s.LastProducts.Clone()
	return &out
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return errors.New("session id is empty")
	}
	if strings.TrimSpace(s.ThreadID) == "" {
		return ErrInvalidThread
	}
	if s.UserID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidUser, s.UserID)
	}
	for i, t := range s.History {
		switch t.Role {
		case RoleUser, RoleAgent:
		default:
			return fmt.Errorf("%w: history[%d] has role %q", ErrInvalidTurn, i, t.Role)
		}
	}
	for _, p := range []*Payload{s.LastPayload, s.LastProducts} {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	if s.LastProducts != nil && s.LastProducts.Kind != PayloadProducts {
		return fmt.Errorf("%w: last_products has kind %q", ErrInvalidPayload, s.LastProducts.Kind)
	}
	return nil
}
