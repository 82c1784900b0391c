package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-workshop/internal/config"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// Opener builds the services a command operates on. Commands close what
// they open.
type Opener func(ctx context.Context) (*wire.Services, error)

// DefaultOpener loads configuration from the environment and wires the
// configured store and generator.
func DefaultOpener(ctx context.Context) (*wire.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return wire.BuildServices(ctx, cfg)
}

// NewRootCmd assembles the workshop command tree.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "workshop",
		Short: "Generate, refine and keep AI prompt cards",
		Long: `workshop turns a rough idea into three ready-to-use prompt cards,
lets you optimize or refine them with the model, and keeps the ones you like
in a searchable library.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		NewServeCmd(),
		NewGenerateCmd(open),
		NewOptimizeCmd(open),
		NewRefineCmd(open),
		NewListCmd(open),
		NewSaveCmd(open),
		NewDeleteCmd(open),
		NewClearCmd(open),
	)
	return root
}

// withServices opens the services for the duration of fn.
func withServices(cmd *cobra.Command, open Opener, fn func(ctx context.Context, s *wire.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open workshop: %w", err)
	}
	defer s.Close()
	return fn(ctx, s)
}
