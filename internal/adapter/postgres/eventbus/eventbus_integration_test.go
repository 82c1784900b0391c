//go:build integration

package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgeventbus "github.com/alanyang/prompt-workshop/internal/adapter/postgres/eventbus"
	"github.com/alanyang/prompt-workshop/internal/domain/event"
	"github.com/alanyang/prompt-workshop/internal/testutil"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	bus := pgeventbus.New(pool)

	got := make(chan event.Event, 1)
	sub, err := bus.Subscribe(ctx, event.ChannelLibrary, func(_ context.Context, e event.Event) {
		got <- e
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, bus.Publish(ctx, event.New(event.TypeCardSaved, "card-1")))

	select {
	case e := <-got:
		assert.Equal(t, event.TypeCardSaved, e.Type)
		assert.Equal(t, "card-1", e.EntityID)
		assert.Equal(t, bus.Origin(), e.Origin)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for NOTIFY")
	}
}

func TestEventBus_PeerSeesForeignOrigin(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	local, peer := pgeventbus.New(pool), pgeventbus.New(pool)

	got := make(chan event.Event, 1)
	sub, err := local.Subscribe(ctx, event.ChannelLibrary, func(_ context.Context, e event.Event) {
		got <- e
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, peer.Publish(ctx, event.New(event.TypeLibraryCleared, "")))

	select {
	case e := <-got:
		assert.Equal(t, peer.Origin(), e.Origin)
		assert.NotEqual(t, local.Origin(), e.Origin)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for NOTIFY")
	}
}
