package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-workshop/internal/wire"
)

// NewOptimizeCmd creates the 'optimize' command for saved cards.
func NewOptimizeCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <id>",
		Short: "Rewrite a saved card into a clearer, more structured prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				target, ok := s.Library.Get(args[0])
				if !ok {
					return fmt.Errorf("card '%s' not found", args[0])
				}

				out, changed, err := s.Studio.Optimize(ctx, target)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintln(cmd.OutOrStdout(), "The model returned no new content; card unchanged.")
				}
				newRenderer(cmd.OutOrStdout()).card(out, true)
				return nil
			})
		},
	}
}

// NewRefineCmd creates the 'refine' command for saved cards.
func NewRefineCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "refine <id> <instruction>",
		Short:   "Edit a saved card with a free-text instruction",
		Example: `  workshop refine 3f2a... "make it shorter and more formal"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				target, ok := s.Library.Get(args[0])
				if !ok {
					return fmt.Errorf("card '%s' not found", args[0])
				}

				out, err := s.Studio.Refine(ctx, target, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				newRenderer(cmd.OutOrStdout()).card(out, true)
				return nil
			})
		},
	}
}
