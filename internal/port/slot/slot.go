package slot

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=../../mocks/mock_slot.go -package=mocks github.com/alanyang/prompt-workshop/internal/port/slot Store

// ErrNotFound is returned by Get when nothing has been written under the key.
var ErrNotFound = errors.New("slot: not found")

// Store is a durable key-value slot store holding one opaque blob per key.
// [DIP] service/library depends on this interface, not on any concrete storage.
// [LSP] Postgres, SQLite and in-memory implementations are all valid substitutes.
type Store interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the blob stored under key.
	Put(ctx context.Context, key string, value []byte) error
}
