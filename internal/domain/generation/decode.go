package generation

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

// Clean strips markdown code fences anywhere in text and trims whitespace.
// Models sometimes interleave prose with several fenced blocks, so fences are
// removed everywhere, not only at the edges.
func Clean(text string) string {
	text = strings.ReplaceAll(text, jsonFence, "")
	text = strings.ReplaceAll(text, fence, "")
	return strings.TrimSpace(text)
}

// Decode parses model output into T, returning fallback when text is empty or
// is not valid JSON after cleanup. It never fails; parse errors are logged.
func Decode[T any](text string, fallback T) T {
	if text == "" {
		return fallback
	}
	var out T
	if err := json.Unmarshal([]byte(Clean(text)), &out); err != nil {
		slog.Warn("generation response is not valid JSON, using fallback", "error", err, "length", len(text))
		return fallback
	}
	return out
}

// DecodeObject decodes a single JSON object response; anything else yields an empty map.
func DecodeObject(text string) map[string]any {
	m := Decode[map[string]any](text, map[string]any{})
	if m == nil {
		// literal "null"
		return map[string]any{}
	}
	return m
}

// DecodeArray decodes a JSON array response; anything else yields an empty slice.
func DecodeArray(text string) []any {
	a := Decode[[]any](text, []any{})
	if a == nil {
		return []any{}
	}
	return a
}
