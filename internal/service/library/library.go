package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/domain/event"
	portbus "github.com/alanyang/prompt-workshop/internal/port/eventbus"
	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
)

// DefaultKey is the slot the saved library lives under.
const DefaultKey = "dopa-saved-prompts"

// ErrNotConfirmed is returned by Clear when the caller did not confirm.
var ErrNotConfirmed = errors.New("library: clear not confirmed")

// Service is the user's saved card collection. The whole collection is kept in
// memory and written back to a single slot after every mutation.
// [SRP] Collection state and persistence only; generation lives in service/studio.
// [DIP] Depends on the slot.Store and EventBus ports.
type Service struct {
	store portslot.Store
	bus   portbus.EventBus
	key   string

	mu    sync.RWMutex
	cards []card.Card
}

func NewService(store portslot.Store, bus portbus.EventBus, key string) *Service {
	if key == "" {
		key = DefaultKey
	}
	return &Service{store: store, bus: bus, key: key, cards: []card.Card{}}
}

// Load rehydrates the collection from the slot. A missing, unreadable or
// corrupt slot leaves the collection empty; it is never an error.
func (s *Service) Load(ctx context.Context) int {
	cards := s.read(ctx)

	s.mu.Lock()
	s.cards = cards
	s.mu.Unlock()

	slog.InfoContext(ctx, "library loaded", "key", s.key, "cards", len(cards))
	return len(cards)
}

// Reload re-reads the slot while holding the write lock, so a concurrent
// mutation cannot interleave between the read and the swap. Instances that
// share a store call it when another instance reports a library change.
func (s *Service) Reload(ctx context.Context) {
	s.mu.Lock()
	s.cards = s.read(ctx)
	s.mu.Unlock()
}

func (s *Service) read(ctx context.Context) []card.Card {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, portslot.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to read library slot", "key", s.key, "error", err)
		}
		return []card.Card{}
	}

	var cards []card.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		slog.ErrorContext(ctx, "failed to parse library slot", "key", s.key, "error", err)
		return []card.Card{}
	}
	if cards == nil {
		return []card.Card{}
	}
	return cards
}

// persist must be called with s.mu held.
func (s *Service) persist(ctx context.Context) error {
	data, err := json.Marshal(s.cards)
	if err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	if err := s.store.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist library: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, t event.Type, id string) {
	if err := s.bus.Publish(ctx, event.New(t, id)); err != nil {
		slog.ErrorContext(ctx, "failed to publish library event", "type", t, "card_id", id, "error", err)
	}
}

func (s *Service) indexOf(id string) int {
	for i, c := range s.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// saveLocked prepends c unless its id is present. s.mu must be held.
func (s *Service) saveLocked(c card.Card) bool {
	if s.indexOf(c.ID) >= 0 {
		return false
	}
	s.cards = append([]card.Card{c}, s.cards...)
	return true
}

// removeLocked drops the card with id, keeping order. s.mu must be held.
func (s *Service) removeLocked(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	next := make([]card.Card, 0, len(s.cards)-1)
	next = append(next, s.cards[:i]...)
	s.cards = append(next, s.cards[i+1:]...)
	return true
}

// commit persists the collection, releases s.mu and publishes t only when the
// slot now holds the change.
func (s *Service) commit(ctx context.Context, t event.Type, id string) error {
	err := s.persist(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(ctx, t, id)
	return nil
}

// Save prepends c unless a card with the same id is already saved.
// It reports whether the collection changed.
func (s *Service) Save(ctx context.Context, c card.Card) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("save card: %w", err)
	}

	s.mu.Lock()
	if !s.saveLocked(c) {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.commit(ctx, event.TypeCardSaved, c.ID); err != nil {
		return true, fmt.Errorf("save card: %w", err)
	}
	return true, nil
}

// Unsave is the inverse of Save.
func (s *Service) Unsave(ctx context.Context, id string) (bool, error) {
	return s.Remove(ctx, id)
}

// Remove deletes the card with the given id; absent ids are a no-op.
func (s *Service) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.commit(ctx, event.TypeCardRemoved, id); err != nil {
		return true, fmt.Errorf("remove card: %w", err)
	}
	return true, nil
}

// Toggle saves c, or removes it when its id is already saved. It returns
// whether c is saved afterwards. The check and the mutation share one lock.
func (s *Service) Toggle(ctx context.Context, c card.Card) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("toggle card: %w", err)
	}

	s.mu.Lock()
	saved, t := true, event.TypeCardSaved
	if s.removeLocked(c.ID) {
		saved, t = false, event.TypeCardRemoved
	} else {
		s.saveLocked(c)
	}
	if err := s.commit(ctx, t, c.ID); err != nil {
		return saved, fmt.Errorf("toggle card: %w", err)
	}
	return saved, nil
}

// Replace overwrites the saved card with c's id in place. It never inserts.
func (s *Service) Replace(ctx context.Context, c card.Card) (bool, error) {
	s.mu.Lock()
	i := s.indexOf(c.ID)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.cards[i] = c
	if err := s.commit(ctx, event.TypeCardReplaced, c.ID); err != nil {
		return true, fmt.Errorf("replace card: %w", err)
	}
	return true, nil
}

// Clear empties the library. It is irreversible, so the caller must pass
// confirmed=true after asking the user.
func (s *Service) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	s.cards = []card.Card{}
	if err := s.commit(ctx, event.TypeLibraryCleared, ""); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}
	return nil
}

// List returns a copy of the collection, most recently saved first.
func (s *Service) List() []card.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]card.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *Service) Get(id string) (card.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.cards[i], true
	}
	return card.Card{}, false
}

func (s *Service) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// View returns the filtered, sorted library for q.
func (s *Service) View(q card.Query) []card.Card {
	return card.View(s.List(), q)
}

// Facets returns the type filter options over the whole library.
func (s *Service) Facets() []string {
	return card.Facets(s.List())
}

// Suggest returns known types matching what the user has typed so far.
func (s *Service) Suggest(typed string) []string {
	return card.Suggest(s.Facets(), typed)
}
