package state

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrStateNotFound = errors.New("session state not found")
	ErrNilSession    = errors.New("session is nil")
)

// Store is the persistence contract used by the orchestrator. Save replaces
// the whole session under its thread id.
type Store interface {
	Load(ctx context.Context, threadID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MemoryStore keeps deep copies of sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Load(ctx context.Context, threadID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ErrInvalidThread
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[threadID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ThreadID] = s.Clone()
	return nil
}
