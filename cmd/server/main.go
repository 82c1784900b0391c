package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyang/prompt-workshop/internal/config"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := wire.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer func() {
		// subscriptions hold pooled connections until ctx ends
		cancel()
		if err := app.Close(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
	}
	slog.Info("prompt-workshop server stopped")
}
