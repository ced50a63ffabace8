package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

func (s *MemoryStore) Load(_ context.Context, session string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Turn(nil), s.turns[session]...), nil
}

func (s *MemoryStore) Append(_ context.Context, session string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, t := range turns {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		s.turns[session] = append(s.turns[session], t)
	}
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, session)
	return nil
}

func (s *MemoryStore) Sessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.turns))
	for id, turns := range s.turns {
		if len(turns) > 0 {
			sessions = append(sessions, id)
		}
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
