package generation

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
)

// VariantCount is how many cards an initial generation asks for.
const VariantCount = 3

// SuggestedTypes seeds the open category set offered to the model.
var SuggestedTypes = []string{"Creative Writing", "Coding", "Business", "Academic Research", "Lifestyle"}

type Operation string

const (
	OpGenerate Operation = "generate"
	OpOptimize Operation = "optimize"
	OpRefine   Operation = "refine"
)

// Request is a single structured-output call to the generation service.
type Request struct {
	Operation   Operation
	Model       string
	Instruction string
	JSON        bool // ask for application/json output
}

// Composer turns user input into generation requests.
type Composer struct {
	Model    string
	Language string
}

func NewComposer(model, language string) Composer {
	if language == "" {
		language = "Chinese"
	}
	return Composer{Model: model, Language: language}
}

func (c Composer) request(op Operation, instruction string) Request {
	return Request{Operation: op, Model: c.Model, Instruction: instruction, JSON: true}
}

// Initial asks for VariantCount distinct prompt cards for an idea, optionally
// scoped by a topic keyword.
func (c Composer) Initial(idea, topic string) Request {
	subject := idea
	if t := strings.TrimSpace(topic); t != "" {
		subject = fmt.Sprintf("Topic: %s\nDetails: %s", t, idea)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d distinct, high-quality prompt variants in %s for the following request:\n\n", VariantCount, c.Language)
	b.WriteString(subject)
	b.WriteString("\n\nReturn a JSON array. Each object has:\n")
	b.WriteString("- title: a short, catchy title (at most 10 characters)\n")
	fmt.Fprintf(&b, "- type: a general category such as %s\n", quoteList(SuggestedTypes))
	fmt.Fprintf(&b, "- content: the prompt itself (about 100 characters or less, in %s)\n\n", c.Language)
	b.WriteString("Example:\n")
	b.WriteString(`[{"title": "Sci-fi plot", "type": "Creative Writing", "content": "Write a story about..."}]`)
	return c.request(OpGenerate, b.String())
}

// Optimize asks for a clearer, more structured rewrite of a card that keeps its intent.
func (c Composer) Optimize(in card.Card) Request {
	var b strings.Builder
	b.WriteString("You are a prompt engineering expert. Optimize the prompt below so it is more structured, clearer and better at guiding a large language model.\n\n")
	writeCard(&b, in, "Original")
	b.WriteString("\nRequirements:\n")
	b.WriteString("1. Keep the original intent but add detail and context.\n")
	b.WriteString("2. Use professional prompting techniques such as role setting and task decomposition.\n")
	fmt.Fprintf(&b, "3. Answer in %s and return a single JSON object with the optimized title, type and content.\n", c.Language)
	return c.request(OpOptimize, b.String())
}

// Refine asks for only the edits implied by a free-text instruction.
func (c Composer) Refine(in card.Card, instruction string) Request {
	var b strings.Builder
	b.WriteString("You are a smart editor.\n\nCurrent data:\n")
	writeCard(&b, in, "Current")
	fmt.Fprintf(&b, "\nUser instruction: %s\n\n", instruction)
	b.WriteString("Modify the data above (title, type or content) according to the instruction.\n")
	b.WriteString("Only change what the instruction requires and leave everything else as it is.\n")
	b.WriteString("Return a JSON object containing only the fields you changed, never id or date.\n")
	b.WriteString(`Example: {"content": "..."}`)
	return c.request(OpRefine, b.String())
}

func writeCard(b *strings.Builder, in card.Card, label string) {
	fmt.Fprintf(b, "%s title: %s\n", label, in.Title)
	fmt.Fprintf(b, "%s type: %s\n", label, in.Type)
	fmt.Fprintf(b, "%s content: %s\n", label, in.Content)
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = `"` + s + `"`
	}
	return strings.Join(quoted, ", ")
}

// Cards converts a decoded array response into new cards. Non-object
// elements are skipped; every card gets newID() and now as its identity.
func Cards(decoded []any, now time.Time, newID func() string) []card.Card {
	out := make([]card.Card, 0, len(decoded))
	for _, el := range decoded {
		m, ok := el.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, card.FromMap(m, newID(), now.UnixMilli()))
	}
	return out
}
