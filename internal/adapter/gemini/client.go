package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/alanyang/prompt-workshop/internal/domain/generation"
)

// DefaultModel is used when neither the request nor the client names a model.
const DefaultModel = "gemini-2.5-flash"

const jsonMIMEType = "application/json"

// Client implements port/generator.Generator on top of the Gemini API.
// [LSP] Any conforming Generator (another vendor, a canned fake) can substitute.
type Client struct {
	models *genai.Models
	model  string
}

// ErrNoAPIKey is returned by Disabled for every request.
var ErrNoAPIKey = errors.New("gemini API key is not configured")

type Option func(*genai.ClientConfig)

// WithBaseURL points the client at a different endpoint, e.g. a proxy or a test server.
func WithBaseURL(url string) Option {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

// New creates a Gemini client for apiKey. model may be empty.
func New(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{models: client.Models, model: model}, nil
}

// Generate sends a single-turn request and returns the concatenated text parts.
func (c *Client) Generate(ctx context.Context, req generation.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var cfg *genai.GenerateContentConfig
	if req.JSON {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: jsonMIMEType}
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(req.Instruction), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini %s (%s): %w", req.Operation, model, err)
	}
	return resp.Text(), nil
}

// Model returns the default model name.
func (c *Client) Model() string { return c.model }

// Disabled stands in for Client when no API key is configured. Every call
// fails, so generation surfaces the error card instead of the process
// refusing to start.
type Disabled struct{}

func (Disabled) Generate(context.Context, generation.Request) (string, error) {
	return "", ErrNoAPIKey
}
