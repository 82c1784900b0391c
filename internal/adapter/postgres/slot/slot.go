package slot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
)

// Repository implements port/slot.Store using a Postgres key/value table.
// [LSP] Any conforming slot.Store (SQLite, in-memory) can substitute.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value::text FROM kv_slots WHERE key = $1`

	var value string
	err := r.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, portslot.ErrNotFound
		}
		return nil, fmt.Errorf("querying slot %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put upserts the slot. value must be valid JSON; the column is JSONB.
func (r *Repository) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv_slots (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("upserting slot %s: %w", key, err)
	}
	return nil
}
