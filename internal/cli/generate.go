package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// NewGenerateCmd creates the 'generate' command.
func NewGenerateCmd(open Opener) *cobra.Command {
	var topic string
	var save bool

	cmd := &cobra.Command{
		Use:     "generate <idea>",
		Aliases: []string{"gen"},
		Short:   "Generate prompt card variants for an idea",
		Example: `  workshop generate "help me write a weekly report"
  workshop gen --topic sci-fi "a story about a lonely robot" --save`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				return runGenerate(ctx, cmd, s, strings.Join(args, " "), topic, save)
			})
		},
	}

	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Topic keyword that scopes the idea")
	cmd.Flags().BoolVarP(&save, "save", "s", false, "Save every generated card to the library")
	return cmd
}

func runGenerate(ctx context.Context, cmd *cobra.Command, s *wire.Services, idea, topic string, save bool) error {
	cards, err := s.Studio.Generate(ctx, idea, topic)
	if errors.Is(err, studiosvc.ErrEmptyIdea) {
		return fmt.Errorf("idea must not be empty")
	}
	if err != nil {
		return err
	}

	if save {
		for _, c := range cards {
			if c.ID == card.ErrorCardID {
				continue
			}
			if _, err := s.Library.Save(ctx, c); err != nil {
				return fmt.Errorf("failed to save %s: %w", c.ID, err)
			}
		}
	}

	newRenderer(cmd.OutOrStdout()).cards(cards, s.Library.Contains)
	return nil
}
