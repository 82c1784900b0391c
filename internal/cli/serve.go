package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-workshop/internal/config"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// NewServeCmd creates the 'serve' command running the HTTP, WebSocket and MCP server.
func NewServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and MCP server",
		Example: `  workshop serve
  workshop serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := wire.Build(ctx, cfg)
			if err != nil {
				return err
			}
			runErr := app.Run(ctx)
			cancel()
			if err := app.Close(); err != nil {
				slog.Error("failed to close storage", "error", err)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}
