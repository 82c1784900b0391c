package generation_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	"github.com/alanyang/prompt-workshop/internal/domain/generation"
)

// ── Decode ────────────────────────────────────────────────────────────────────

func TestDecode_EmptyReturnsFallback(t *testing.T) {
	fallback := map[string]any{"fallback": true}
	assert.Equal(t, fallback, generation.Decode("", fallback))
}

func TestDecode_FencedJSON(t *testing.T) {
	got := generation.Decode("```json\n{\"a\":1}\n```", map[string]any{})
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestDecode_InterleavedFences(t *testing.T) {
	text := "```json\n[{\"title\":\"T\"}\n```\n```\n]\n```"
	got := generation.Decode(text, []any{})
	require.Len(t, got, 1)
}

func TestDecode_InvalidReturnsFallback(t *testing.T) {
	fallback := []any{"untouched"}
	assert.Equal(t, fallback, generation.Decode("not json", fallback))
	assert.NotPanics(t, func() { generation.Decode("{\"unterminated\": ", fallback) })
}

func TestDecode_WrongShapeReturnsFallback(t *testing.T) {
	assert.Equal(t, map[string]any{}, generation.DecodeObject(`[1,2,3]`))
	assert.Equal(t, []any{}, generation.DecodeArray(`{"a":1}`))
	assert.Equal(t, map[string]any{}, generation.DecodeObject(`null`))
	assert.Equal(t, []any{}, generation.DecodeArray(`null`))
}

func TestClean(t *testing.T) {
	assert.Equal(t, `{"a":1}`, generation.Clean("  ```json\n{\"a\":1}\n```  "))
	assert.Equal(t, "plain", generation.Clean("plain"))
}

// ── Composer ──────────────────────────────────────────────────────────────────

func TestComposer_Initial(t *testing.T) {
	c := generation.NewComposer("gemini-2.5-flash", "")
	req := c.Initial("a weekly report helper", "")

	assert.Equal(t, generation.OpGenerate, req.Operation)
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	assert.True(t, req.JSON)
	assert.Contains(t, req.Instruction, "a weekly report helper")
	assert.Contains(t, req.Instruction, strconv.Itoa(generation.VariantCount))
	assert.Contains(t, req.Instruction, "Chinese")
	assert.NotContains(t, req.Instruction, "Topic:")
}

func TestComposer_InitialWithTopic(t *testing.T) {
	c := generation.NewComposer("m", "English")
	req := c.Initial("robots in space", "sci-fi")
	assert.Contains(t, req.Instruction, "Topic: sci-fi\nDetails: robots in space")
	assert.Contains(t, req.Instruction, "English")
}

func TestComposer_OptimizeAndRefine(t *testing.T) {
	c := generation.NewComposer("m", "English")
	in := card.Card{ID: "x", Title: "A", Type: "B", Content: "C", Date: 5}

	opt := c.Optimize(in)
	assert.Equal(t, generation.OpOptimize, opt.Operation)
	assert.True(t, opt.JSON)
	assert.Contains(t, opt.Instruction, "title: A")
	assert.Contains(t, opt.Instruction, "content: C")

	ref := c.Refine(in, "make it shorter")
	assert.Equal(t, generation.OpRefine, ref.Operation)
	assert.True(t, ref.JSON)
	assert.Contains(t, ref.Instruction, "User instruction: make it shorter")
	assert.Contains(t, ref.Instruction, "type: B")
}

// ── Cards ─────────────────────────────────────────────────────────────────────

func TestCards_EndToEnd(t *testing.T) {
	now := time.UnixMilli(1234)
	n := 0
	newID := func() string { n++; return "id-" + strconv.Itoa(n) }

	decoded := generation.DecodeArray(`[{"title":"T","type":"Ty","content":"C","id":"model","date":1}]`)
	cards := generation.Cards(decoded, now, newID)

	require.Len(t, cards, 1)
	assert.Equal(t, card.Card{ID: "id-1", Title: "T", Type: "Ty", Content: "C", Date: 1234}, cards[0])
}

func TestCards_SkipsNonObjects(t *testing.T) {
	cards := generation.Cards([]any{"str", 1.0, map[string]any{"title": "ok"}}, time.Now(), card.NewID)
	require.Len(t, cards, 1)
	assert.Equal(t, "ok", cards[0].Title)
}
