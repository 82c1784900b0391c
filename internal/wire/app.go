package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyang/prompt-workshop/internal/adapter/gemini"
	"github.com/alanyang/prompt-workshop/internal/adapter/memory"
	pgdb "github.com/alanyang/prompt-workshop/internal/adapter/postgres"
	pgeventbus "github.com/alanyang/prompt-workshop/internal/adapter/postgres/eventbus"
	pgidem "github.com/alanyang/prompt-workshop/internal/adapter/postgres/idempotency"
	pgslot "github.com/alanyang/prompt-workshop/internal/adapter/postgres/slot"
	"github.com/alanyang/prompt-workshop/internal/adapter/sqlite"
	"github.com/alanyang/prompt-workshop/internal/config"
	"github.com/alanyang/prompt-workshop/internal/domain/event"
	"github.com/alanyang/prompt-workshop/internal/domain/generation"
	porteventbus "github.com/alanyang/prompt-workshop/internal/port/eventbus"
	portidem "github.com/alanyang/prompt-workshop/internal/port/idempotency"
	portgen "github.com/alanyang/prompt-workshop/internal/port/generator"
	portslot "github.com/alanyang/prompt-workshop/internal/port/slot"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
	"github.com/alanyang/prompt-workshop/internal/transport"
	mcptransport "github.com/alanyang/prompt-workshop/internal/transport/mcp"
)

// Version is reported to MCP clients. Overridden at build time via -ldflags.
var Version = "dev"

// Services holds the wired domain services and the resources behind them.
// The CLI uses it directly; the server wraps it in an App.
type Services struct {
	Studio      *studiosvc.Service
	Library     *librarysvc.Service
	EventBus    porteventbus.EventBus
	Idempotency portidem.Repository
	Registry    *prometheus.Registry

	closers []func() error
}

// Close releases storage connections in reverse order of acquisition.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// App holds the top-level resources needed to run and gracefully stop the server.
type App struct {
	*Services
	Server    *http.Server
	MCPServer *mcptransport.Server
}

// BuildServices is the composition root for everything below the transport
// layer: storage, event bus, generator and the two services.
func BuildServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{}

	// ── Storage + event bus ──────────────────────────────────────────────────
	var store portslot.Store
	var pgBus *pgeventbus.EventBus
	switch cfg.Store {
	case config.StorePostgres:
		pool, err := pgdb.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		if err := pgdb.Migrate(ctx, pool); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		store = pgslot.New(pool)
		pgBus = pgeventbus.New(pool)
		s.EventBus = pgBus
		s.Idempotency = pgidem.New(pool)
	case config.StoreSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		s.closers = append(s.closers, st.Close)
		store = st
		s.EventBus = memory.NewEventBus()
		s.Idempotency = memory.NewIdempotencyStore()
	default:
		store = memory.NewSlotStore()
		s.EventBus = memory.NewEventBus()
		s.Idempotency = memory.NewIdempotencyStore()
	}

	// ── Generator ────────────────────────────────────────────────────────────
	var gen portgen.Generator
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.Model)
	switch {
	case errors.Is(err, gemini.ErrNoAPIKey):
		slog.Warn("GEMINI_API_KEY not set; generation requests will fail")
		gen = gemini.Disabled{}
	case err != nil:
		_ = s.Close()
		return nil, fmt.Errorf("creating gemini client: %w", err)
	default:
		gen = client
	}

	// ── Services ─────────────────────────────────────────────────────────────
	s.Library = librarysvc.NewService(store, s.EventBus, cfg.SlotKey)
	n := s.Library.Load(ctx)

	// A shared database means other instances write the same slot; follow
	// their changes over LISTEN/NOTIFY. Our own writes are already in memory.
	if pgBus != nil {
		sub, err := pgBus.Subscribe(ctx, event.ChannelLibrary, func(ctx context.Context, e event.Event) {
			if e.Origin == pgBus.Origin() {
				return
			}
			s.Library.Reload(ctx)
		})
		if err != nil {
			slog.Warn("library will not follow other instances", "error", err)
		} else {
			// the LISTEN connection must go back to the pool before it closes
			s.closers = append(s.closers, func() error { sub.Unsubscribe(); return nil })
		}
	}

	s.Registry = prometheus.NewRegistry()
	s.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.Studio = studiosvc.NewService(gen, s.Library, s.EventBus,
		generation.NewComposer(cfg.Model, cfg.Language),
		studiosvc.WithMetrics(studiosvc.NewMetrics(s.Registry)),
	)

	slog.Info("services wired", "store", cfg.Store, "model", cfg.Model, "saved_cards", n)
	return s, nil
}

// Build wires the services behind the HTTP, WebSocket and MCP transports.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	s, err := BuildServices(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mcpServer := mcptransport.New(s.Studio, s.Library, Version)

	// ── Transport ─────────────────────────────────────────────────────────────
	router := transport.NewRouter(ctx, transport.Deps{
		Studio:      s.Studio,
		Library:     s.Library,
		EventBus:    s.EventBus,
		Idempotency: s.Idempotency,
		MCP:         mcpServer.Handler(),
		Metrics:     promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	slog.Info("application wired", "port", cfg.Port)

	return &App{
		Services:  s,
		Server:    server,
		MCPServer: mcpServer,
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP + MCP server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	return runErr
}
