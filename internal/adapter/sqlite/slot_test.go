package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/prompt-workshop/internal/adapter/sqlite"
	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
)

func openStore(t *testing.T, path string) *sqlite.SlotStore {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSlotStore_MissingKey(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "workshop.db"))
	_, err := s.Get(context.Background(), "dopa-saved-prompts")
	assert.ErrorIs(t, err, portslot.ErrNotFound)
}

func TestSlotStore_Upsert(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "workshop.db"))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Put(ctx, "k", []byte(`[]`)))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestSlotStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "workshop.db")
	ctx := context.Background()

	first, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, "k", []byte(`[{"id":"a","date":1}]`)))
	require.NoError(t, first.Close())

	second := openStore(t, path)
	got, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a","date":1}]`, string(got))
}
