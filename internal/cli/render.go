package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
)

const wordWrap = 80

// renderer prints cards: a styled header line, then the prompt body as markdown.
type renderer struct {
	out   io.Writer
	md    *glamour.TermRenderer
	title lipgloss.Style
	badge lipgloss.Style
	muted lipgloss.Style
	saved lipgloss.Style
}

func newRenderer(out io.Writer) *renderer {
	style := glamour.WithStylePath("notty")
	if out == os.Stdout {
		style = glamour.WithAutoStyle()
	}
	// nil on failure; body falls back to plain text
	md, _ := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))

	lr := lipgloss.NewRenderer(out)
	return &renderer{
		out:   out,
		md:    md,
		title: lr.NewStyle().Bold(true),
		badge: lr.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5A56E0")).Padding(0, 1),
		muted: lr.NewStyle().Foreground(lipgloss.Color("#888888")),
		saved: lr.NewStyle().Foreground(lipgloss.Color("#E0A800")),
	}
}

func (r *renderer) card(c card.Card, saved bool) {
	header := r.title.Render(c.Title) + " " + r.badge.Render(c.Type)
	if saved {
		header += " " + r.saved.Render("★ saved")
	}
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf("id: %s · %s", c.ID, c.Time().Format("2006-01-02 15:04"))))
	fmt.Fprintln(r.out, r.body(c.Content))
}

func (r *renderer) body(content string) string {
	if r.md == nil {
		return content
	}
	out, err := r.md.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (r *renderer) cards(cards []card.Card, isSaved func(string) bool) {
	for i, c := range cards {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		r.card(c, isSaved(c.ID))
	}
}
