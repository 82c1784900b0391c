package generator

import (
	"context"

	"github.com/alanyang/prompt-workshop/internal/domain/generation"
)

//go:generate mockgen -destination=../../mocks/mock_generator.go -package=mocks github.com/alanyang/prompt-workshop/internal/port/generator Generator

// Generator is the remote text-generation service.
// [DIP] service/studio depends on this interface, not on a vendor SDK.
// [LSP] Gemini, a canned-response fake, or any other LLM client are valid substitutes.
type Generator interface {
	// Generate runs one single-shot request and returns the raw response text.
	// The text is expected, not guaranteed, to be JSON.
	Generate(ctx context.Context, req generation.Request) (string, error)
}
