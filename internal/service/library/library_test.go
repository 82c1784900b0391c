package library_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/prompt-workshop/internal/adapter/memory"
	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/domain/event"
	"github.com/alanyang/prompt-workshop/internal/mocks"
	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
)

const key = librarysvc.DefaultKey

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x interface{}) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}
func (m eventTypeMatcher) String() string { return "event.Type=" + string(m.want) }

// newLibrary wires the service to a real in-memory slot and a permissive bus mock.
func newLibrary(t *testing.T) (*librarysvc.Service, *memory.SlotStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockEventBus(ctrl)
	bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store := memory.NewSlotStore()
	return librarysvc.NewService(store, bus, key), store
}

func stored(t *testing.T, store *memory.SlotStore) []card.Card {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	var cards []card.Card
	require.NoError(t, json.Unmarshal(data, &cards))
	return cards
}

var (
	r1 = card.Card{ID: "r1", Title: "one", Type: "A", Content: "first", Date: 1}
	r2 = card.Card{ID: "r2", Title: "two", Type: "B", Content: "second", Date: 2}
)

// ── Load ──────────────────────────────────────────────────────────────────────

func TestLoad_MissingSlotIsEmpty(t *testing.T) {
	svc, _ := newLibrary(t)
	assert.Equal(t, 0, svc.Load(context.Background()))
	assert.Empty(t, svc.List())
}

func TestLoad_CorruptSlotIsEmpty(t *testing.T) {
	svc, store := newLibrary(t)
	require.NoError(t, store.Put(context.Background(), key, []byte("{not json")))

	assert.Equal(t, 0, svc.Load(context.Background()))
	assert.Empty(t, svc.List())
}

func TestLoad_ReadErrorIsEmpty(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	bus := mocks.NewMockEventBus(ctrl)
	store.EXPECT().Get(gomock.Any(), key).Return(nil, errors.New("disk on fire"))

	svc := librarysvc.NewService(store, bus, "")
	assert.Equal(t, 0, svc.Load(context.Background()))
}

func TestLoad_Rehydrates(t *testing.T) {
	svc, store := newLibrary(t)
	data, _ := json.Marshal([]card.Card{r2, r1})
	require.NoError(t, store.Put(context.Background(), key, data))

	assert.Equal(t, 2, svc.Load(context.Background()))
	assert.Equal(t, []card.Card{r2, r1}, svc.List())
}

// ── Save / Unsave / Toggle ───────────────────────────────────────────────────

func TestSave_PrependsAndPersists(t *testing.T) {
	svc, store := newLibrary(t)
	ctx := context.Background()

	changed, err := svc.Save(ctx, r1)
	require.NoError(t, err)
	assert.True(t, changed)
	_, err = svc.Save(ctx, r2)
	require.NoError(t, err)

	assert.Equal(t, []card.Card{r2, r1}, svc.List())
	assert.Equal(t, []card.Card{r2, r1}, stored(t, store))
}

func TestSave_ExistingIsNoop(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)

	changed, err := svc.Save(ctx, r1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, svc.List(), 1)
}

func TestSave_RejectsMissingID(t *testing.T) {
	svc, _ := newLibrary(t)
	_, err := svc.Save(context.Background(), card.Card{Title: "no id"})
	assert.ErrorIs(t, err, card.ErrMissingID)
}

func TestToggle_TwiceRestoresCollection(t *testing.T) {
	svc, store := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)
	before := svc.List()

	saved, err := svc.Toggle(ctx, r2)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, r2, svc.List()[0], "toggled-on card goes to the front")

	saved, err = svc.Toggle(ctx, r2)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, before, svc.List())
	assert.Equal(t, before, stored(t, store))
}

func TestUnsave_AbsentIsNoop(t *testing.T) {
	svc, _ := newLibrary(t)
	changed, err := svc.Unsave(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRemove_KeepsOrder(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()
	r3 := card.Card{ID: "r3", Date: 3}
	_, _ = svc.Save(ctx, r1)
	_, _ = svc.Save(ctx, r2)
	_, _ = svc.Save(ctx, r3)

	changed, err := svc.Remove(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []card.Card{r3, r1}, svc.List())
}

// ── Replace ──────────────────────────────────────────────────────────────────

func TestReplace_OnEmptyDoesNotInsert(t *testing.T) {
	svc, store := newLibrary(t)
	changed, err := svc.Replace(context.Background(), r1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, svc.List())

	_, err = store.Get(context.Background(), key)
	assert.ErrorIs(t, err, portslot.ErrNotFound, "no-op must not write the slot")
}

func TestReplace_InPlace(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)
	_, _ = svc.Save(ctx, r2)

	edited := r1
	edited.Content = "edited"
	changed, err := svc.Replace(ctx, edited)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []card.Card{r2, edited}, svc.List())
}

// ── Clear ────────────────────────────────────────────────────────────────────

func TestClear_RequiresConfirmation(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)

	assert.ErrorIs(t, svc.Clear(ctx, false), librarysvc.ErrNotConfirmed)
	assert.Equal(t, 1, svc.Len())

	require.NoError(t, svc.Clear(ctx, true))
	assert.Equal(t, 0, svc.Len())
}

func TestClear_PersistsEmptyArray(t *testing.T) {
	svc, store := newLibrary(t)
	require.NoError(t, svc.Clear(context.Background(), true))

	data, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

// ── Persistence failures and events ──────────────────────────────────────────

func TestSave_PersistError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	bus := mocks.NewMockEventBus(ctrl)
	store.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(errors.New("db error"))
	// no Publish: the slot does not hold the change

	svc := librarysvc.NewService(store, bus, key)
	_, err := svc.Save(context.Background(), r1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist library")
	assert.True(t, svc.Contains("r1"), "in-memory state is kept; the next write retries")
}

func TestPersistError_KeepsChangeThroughOwnReload(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	bus := memory.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := librarysvc.NewService(store, bus, key)
	reloads := make(chan struct{}, 4)
	sub, err := bus.Subscribe(ctx, event.ChannelLibrary, func(ctx context.Context, _ event.Event) {
		reloads <- struct{}{}
		svc.Reload(ctx)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	store.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(errors.New("db error")).Times(2)
	_, err = svc.Save(ctx, r1)
	require.Error(t, err)
	_, err = svc.Replace(ctx, r1)
	require.Error(t, err)

	select {
	case <-reloads:
		t.Fatal("a failed write must not trigger a reload")
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, svc.Contains("r1"))
}

func TestToggle_ConcurrentEvenCountRestores(t *testing.T) {
	svc, store := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	savedCount := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			saved, err := svc.Toggle(ctx, r2)
			assert.NoError(t, err)
			if saved {
				mu.Lock()
				savedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, savedCount, "every other toggle saves")
	assert.Equal(t, []card.Card{r1}, svc.List())
	assert.Equal(t, []card.Card{r1}, stored(t, store))
}

func TestToggle_RejectsMissingID(t *testing.T) {
	svc, _ := newLibrary(t)
	saved, err := svc.Toggle(context.Background(), card.Card{Title: "no id"})
	assert.ErrorIs(t, err, card.ErrMissingID)
	assert.False(t, saved)
	assert.Zero(t, svc.Len())
}

func TestMutations_PublishEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := mocks.NewMockEventBus(ctrl)
	svc := librarysvc.NewService(memory.NewSlotStore(), bus, key)
	ctx := context.Background()

	gomock.InOrder(
		bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeCardSaved)).Return(nil),
		bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeCardReplaced)).Return(nil),
		bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeCardRemoved)).Return(nil),
		bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeLibraryCleared)).Return(errors.New("bus down")),
	)

	_, _ = svc.Save(ctx, r1)
	_, _ = svc.Replace(ctx, r1)
	_, _ = svc.Remove(ctx, r1.ID)
	assert.NoError(t, svc.Clear(ctx, true), "publish failures are logged, not returned")
}

// ── Query helpers ────────────────────────────────────────────────────────────

func TestViewAndFacets(t *testing.T) {
	svc, _ := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, card.Card{ID: "1", Title: "Cat A", Type: "X", Date: 1})
	_, _ = svc.Save(ctx, card.Card{ID: "2", Title: "Dog B", Type: "Y", Date: 2})
	_, _ = svc.Save(ctx, card.Card{ID: "3", Title: "Cat C", Type: "X", Date: 3})

	view := svc.View(card.Query{Search: "cat", Order: card.OrderAsc})
	require.Len(t, view, 2)
	assert.Equal(t, "1", view[0].ID)
	assert.Equal(t, "3", view[1].ID)

	assert.Equal(t, []string{card.FacetAll, "X", "Y"}, svc.Facets())
	assert.Equal(t, []string{"Y"}, svc.Suggest("y"))
}

func TestReload_PicksUpExternalWrites(t *testing.T) {
	svc, store := newLibrary(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, r1)

	// another instance sharing the store overwrites the slot
	data, _ := json.Marshal([]card.Card{r2, r1})
	require.NoError(t, store.Put(ctx, key, data))

	svc.Reload(ctx)
	assert.Equal(t, []card.Card{r2, r1}, svc.List())
}
