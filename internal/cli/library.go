package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/wire"
)

// NewListCmd creates the 'list' command for browsing the library.
func NewListCmd(open Opener) *cobra.Command {
	var q card.Query
	var order string
	var reverse, jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved prompt cards",
		Example: `  workshop list
  workshop ls --query report --type Business
  workshop list --order asc --json
  workshop list -r`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Order = card.ParseOrder(order)
			if reverse {
				q.Order = q.Order.Toggle()
			}
			return withServices(cmd, open, func(_ context.Context, s *wire.Services) error {
				view := s.Library.View(q)
				out := cmd.OutOrStdout()

				if jsonOutput {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]any{
						"cards": view,
						"types": s.Library.Facets(),
						"total": s.Library.Len(),
					})
				}

				if s.Library.Len() == 0 {
					fmt.Fprintln(out, "No saved prompts yet.")
					fmt.Fprintln(out, "Run 'workshop generate <idea> --save' to add some.")
					return nil
				}
				fmt.Fprintf(out, "Saved prompts (%d of %d) · types: %s\n\n",
					len(view), s.Library.Len(), strings.Join(s.Library.Facets(), ", "))
				if len(view) == 0 {
					fmt.Fprintln(out, "No cards match the current filters.")
					return nil
				}
				newRenderer(out).cards(view, func(string) bool { return false })
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&q.Search, "query", "q", "", "Case-insensitive search over title and content")
	cmd.Flags().StringVarP(&q.Type, "type", "t", card.FacetAll, "Only show cards of this type")
	cmd.Flags().StringVarP(&order, "order", "o", string(card.OrderDesc), "Sort by date: desc or asc")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Flip the sort order")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	return cmd
}

// NewSaveCmd creates the 'save' command for adding a hand-written card.
func NewSaveCmd(open Opener) *cobra.Command {
	var title, typ string

	cmd := &cobra.Command{
		Use:     "save <content>",
		Short:   "Save a hand-written prompt card to the library",
		Example: `  workshop save --title "Standup" --type Business "Summarize my updates as three bullets"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				if typ != "" {
					if hints := s.Library.Suggest(typ); len(hints) > 0 && !contains(s.Library.Facets(), typ) {
						fmt.Fprintf(cmd.ErrOrStderr(), "note: existing types similar to %q: %s\n", typ, strings.Join(hints, ", "))
					}
				}
				c := card.New(title, typ, strings.Join(args, " "), time.Now())
				if _, err := s.Library.Save(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved '%s' (%s)\n", c.Title, c.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Card title")
	cmd.Flags().StringVar(&typ, "type", "", "Card type")
	return cmd
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewDeleteCmd creates the 'delete' command.
func NewDeleteCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a card from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				removed, err := s.Library.Remove(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("card '%s' not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed '%s'\n", args[0])
				return nil
			})
		},
	}
}

// NewClearCmd creates the 'clear' command. It asks before wiping unless --yes is given.
func NewClearCmd(open Opener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every card from the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd, open, func(ctx context.Context, s *wire.Services) error {
				out := cmd.OutOrStdout()
				confirmed := yes
				if !confirmed {
					fmt.Fprintf(out, "Delete all %d saved prompts? This cannot be undone. [y/N] ", s.Library.Len())
					answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					answer = strings.ToLower(strings.TrimSpace(answer))
					confirmed = answer == "y" || answer == "yes"
				}
				if !confirmed {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
				if err := s.Library.Clear(ctx, true); err != nil {
					return err
				}
				fmt.Fprintln(out, "✓ Library cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
