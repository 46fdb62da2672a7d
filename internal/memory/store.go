// Package memory holds bounded per-conversation message history.
package memory

import (
	"context"
	"sort"
	"sync"
)

// DefaultCap is the number of turns kept per conversation.
const DefaultCap = 10

// Store is a capped per-conversation turn buffer. Appending beyond the
// cap evicts the oldest turns so the newest cap turns remain in order.
type Store interface {
	History(ctx context.Context, id string) ([]Turn, error)
	Append(ctx context.Context, id string, turns ...Turn) error
	Clear(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}

// InMemoryStore keeps conversation history in process memory.
// It is lost on restart; use the Redis store for anything durable.
type InMemoryStore struct {
	mu      sync.RWMutex
	maxMsgs int
	convs   map[string][]Turn
}

// NewInMemoryStore creates a store capped at maxMsgs turns per
// conversation. Non-positive maxMsgs falls back to DefaultCap.
func NewInMemoryStore(maxMsgs int) *InMemoryStore {
	if maxMsgs <= 0 {
		maxMsgs = DefaultCap
	}
	return &InMemoryStore{
		maxMsgs: maxMsgs,
		convs:   make(map[string][]Turn),
	}
}

func (s *InMemoryStore) History(ctx context.Context, id string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.convs[id]
	out := make([]Turn, len(history))
	copy(out, history)
	return out, nil
}

func (s *InMemoryStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.convs[id], turns...)
	if excess := len(history) - s.maxMsgs; excess > 0 {
		history = history[excess:]
	}
	s.convs[id] = history
	return nil
}

func (s *InMemoryStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.convs, id)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
