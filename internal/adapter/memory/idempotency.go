package memory

import (
	"context"
	"sync"
)

const maxIdempotencyKeys = 1024

// IdempotencyStore implements port/idempotency.Repository in process memory.
// It keeps the most recent maxIdempotencyKeys results and forgets the oldest.
type IdempotencyStore struct {
	mu      sync.Mutex
	results map[string][]byte
	order   []string
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{results: make(map[string][]byte)}
}

func (s *IdempotencyStore) Check(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[key]
	return result, ok, nil
}

func (s *IdempotencyStore) Store(_ context.Context, key, _ string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[key]; ok {
		return nil
	}
	if len(s.order) >= maxIdempotencyKeys {
		delete(s.results, s.order[0])
		s.order = s.order[1:]
	}
	stored := make([]byte, len(result))
	copy(stored, result)
	s.results[key] = stored
	s.order = append(s.order, key)
	return nil
}
