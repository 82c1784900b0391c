package idempotency

import "context"

//go:generate mockgen -destination=../../mocks/mock_idempotency.go -package=mocks github.com/alanyang/prompt-workshop/internal/port/idempotency Repository

// Repository remembers the result of a processed request so a client retry
// carrying the same key replays it instead of running the operation again.
type Repository interface {
	// Check returns the stored result and whether key has been seen.
	Check(ctx context.Context, key string) ([]byte, bool, error)
	// Store records result for key. The first write for a key wins.
	Store(ctx context.Context, key, opType string, result []byte) error
}
