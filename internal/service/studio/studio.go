package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/domain/event"
	"github.com/alanyang/prompt-workshop/internal/domain/generation"
	portbus "github.com/alanyang/prompt-workshop/internal/port/eventbus"
	portgen "github.com/alanyang/prompt-workshop/internal/port/generator"
)

var (
	ErrEmptyIdea        = errors.New("studio: idea is empty")
	ErrEmptyInstruction = errors.New("studio: instruction is empty")
	ErrUpstream         = errors.New("studio: generation service failed")
	ErrNotFound         = errors.New("studio: card not found")
	ErrBusy             = errors.New("studio: operation already in progress")
)

// Library is the slice of service/library the studio writes optimize and
// refine results back into.
type Library interface {
	Replace(ctx context.Context, c card.Card) (bool, error)
}

// Status is the busy state shown next to the generate button and each card.
type Status struct {
	Generating bool     `json:"generating"`
	Optimizing []string `json:"optimizing"`
}

// Service owns the working set of the latest generation and runs the three
// generation operations against the remote model.
// [SRP] Generation workflow only; saved cards live in service/library.
// [DIP] Depends on the Generator and EventBus ports.
type Service struct {
	gen      portgen.Generator
	lib      Library
	bus      portbus.EventBus
	composer generation.Composer
	metrics  *Metrics
	now      func() time.Time
	newID    func() string

	mu         sync.Mutex
	working    []card.Card
	generating bool
	optimizing map[string]int
}

type Option func(*Service)

// WithClock overrides the timestamp source for new cards.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDs overrides the identifier source for new cards.
func WithIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(gen portgen.Generator, lib Library, bus portbus.EventBus, composer generation.Composer, opts ...Option) *Service {
	s := &Service{
		gen:        gen,
		lib:        lib,
		bus:        bus,
		composer:   composer,
		now:        time.Now,
		newID:      card.NewID,
		working:    []card.Card{},
		optimizing: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, t event.Type, id string) {
	if err := s.bus.Publish(ctx, event.New(t, id)); err != nil {
		slog.ErrorContext(ctx, "failed to publish studio event", "type", t, "card_id", id, "error", err)
	}
}

// upstreamTimeout bounds a model call once it no longer follows the caller.
const upstreamTimeout = 2 * time.Minute

func (s *Service) call(ctx context.Context, req generation.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.gen.Generate(ctx, req)
	outcome := outcomeOK
	switch {
	case err != nil:
		outcome = outcomeUpstream
	case strings.TrimSpace(text) == "":
		outcome = outcomeEmpty
	}
	s.metrics.observe(req.Operation, outcome, time.Since(start))
	return text, err
}

// Generate replaces the working set with fresh cards for idea. An upstream
// failure is not returned: the working set becomes a single error card so
// there is always something to show.
func (s *Service) Generate(ctx context.Context, idea, topic string) ([]card.Card, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, ErrEmptyIdea
	}
	// A caller that goes away does not abort the generation.
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.generating = true
	s.working = []card.Card{}
	s.mu.Unlock()
	s.publish(ctx, event.TypeGenerationStarted, "")

	var cards []card.Card
	text, err := s.call(ctx, s.composer.Initial(idea, topic))
	if err != nil {
		slog.ErrorContext(ctx, "generation failed", "error", err)
		cards = []card.Card{card.ErrorCard(s.now())}
	} else {
		cards = generation.Cards(generation.DecodeArray(text), s.now(), s.newID)
	}

	s.mu.Lock()
	s.working = cards
	s.generating = false
	out := s.cardsLocked()
	s.mu.Unlock()

	slog.InfoContext(ctx, "generation completed", "cards", len(out))
	s.publish(ctx, event.TypeGenerationCompleted, "")
	return out, nil
}

// Optimize asks the model for a better version of c. The result is applied
// only when it carries new content; otherwise c comes back unchanged with
// changed=false. On upstream failure nothing is modified.
func (s *Service) Optimize(ctx context.Context, c card.Card) (card.Card, bool, error) {
	// Late results still apply by id, even after the caller has gone.
	ctx = context.WithoutCancel(ctx)
	done := s.begin(c.ID)
	defer done()

	text, err := s.call(ctx, s.composer.Optimize(c))
	if err != nil {
		slog.ErrorContext(ctx, "optimize failed", "card_id", c.ID, "error", err)
		return c, false, fmt.Errorf("optimize card: %w: %w", ErrUpstream, err)
	}

	patch := card.PatchFromMap(generation.DecodeObject(text))
	if !patch.HasContent() {
		slog.WarnContext(ctx, "optimize returned no content, keeping card", "card_id", c.ID)
		return c, false, nil
	}

	out := c.Apply(patch)
	s.apply(ctx, out)
	return out, true, nil
}

// Refine applies a free-text editing instruction to c. Only the fields the
// model returns are replaced.
func (s *Service) Refine(ctx context.Context, c card.Card, instruction string) (card.Card, error) {
	if strings.TrimSpace(instruction) == "" {
		return c, ErrEmptyInstruction
	}
	ctx = context.WithoutCancel(ctx)

	done := s.begin(c.ID)
	defer done()

	text, err := s.call(ctx, s.composer.Refine(c, instruction))
	if err != nil {
		slog.ErrorContext(ctx, "refine failed", "card_id", c.ID, "error", err)
		return c, fmt.Errorf("refine card: %w: %w", ErrUpstream, err)
	}

	patch := card.PatchFromMap(generation.DecodeObject(text))
	if patch.IsEmpty() {
		return c, nil
	}
	out := c.Apply(patch)
	s.apply(ctx, out)
	return out, nil
}

// apply writes a result into the working set and the library by id. There is
// no staleness check: a late response overwrites edits made meanwhile.
func (s *Service) apply(ctx context.Context, c card.Card) {
	if s.replaceWorking(c) {
		s.publish(ctx, event.TypeCardUpdated, c.ID)
	}
	if _, err := s.lib.Replace(ctx, c); err != nil {
		slog.ErrorContext(ctx, "failed to write result to library", "card_id", c.ID, "error", err)
	}
}

func (s *Service) replaceWorking(c card.Card) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.working {
		if s.working[i].ID == c.ID {
			s.working[i] = c
			return true
		}
	}
	return false
}

// Update stores a manual edit of a working-set card. Unknown ids return ErrNotFound.
func (s *Service) Update(ctx context.Context, c card.Card) error {
	if !s.replaceWorking(c) {
		return ErrNotFound
	}
	s.publish(ctx, event.TypeCardUpdated, c.ID)
	return nil
}

func (s *Service) begin(id string) func() {
	s.mu.Lock()
	s.optimizing[id]++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.optimizing[id]--; s.optimizing[id] <= 0 {
			delete(s.optimizing, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) cardsLocked() []card.Card {
	out := make([]card.Card, len(s.working))
	copy(out, s.working)
	return out
}

// Cards returns the current working set.
func (s *Service) Cards() []card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardsLocked()
}

func (s *Service) Card(id string) (card.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.working {
		if c.ID == id {
			return c, true
		}
	}
	return card.Card{}, false
}

func (s *Service) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// IsOptimizing reports whether an optimize or refine call for id is in flight.
func (s *Service) IsOptimizing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optimizing[id] > 0
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.optimizing))
	for id := range s.optimizing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Status{Generating: s.generating, Optimizing: ids}
}
