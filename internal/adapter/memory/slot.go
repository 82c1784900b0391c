package memory

import (
	"context"
	"sync"

	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
)

// SlotStore implements port/slot.Store in process memory. Nothing survives a
// restart; it backs tests and the "memory" store mode.
type SlotStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewSlotStore() *SlotStore {
	return &SlotStore{
		entries: make(map[string][]byte),
	}
}

func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, portslot.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *SlotStore) Put(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.entries[key] = stored
	s.mu.Unlock()
	return nil
}
