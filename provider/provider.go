package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeyupan/autonotes/config"
	openai_provider "github.com/zeyupan/autonotes/provider/openai"
)

// Finish reasons reported by the generation backend. FinishLength is the
// sole signal driving the overflow-escalation policy in the note stages.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// Request is one generation round-trip to the backend.
type Request struct {
	Model       string // API model name
	System      string // system instruction; may be empty
	Input       string // user payload
	MaxTokens   int
	Temperature *float64 // nil leaves the backend default; 0 is deterministic
}

// Generation is the backend's reply: the text plus the finish-reason flag
// distinguishing a natural stop from an output-length cutoff.
type Generation struct {
	Text         string
	FinishReason string
	PromptTokens int64
	OutputTokens int64
}

// Truncated reports whether the generation stopped on the length limit.
func (g Generation) Truncated() bool { return g.FinishReason == FinishLength }

// Provider is the interface every text-generation backend must satisfy.
type Provider interface {
	Generate(ctx context.Context, req Request) (Generation, error)
}

// GenerationError is a transport or backend failure with the pipeline stage
// name attached. No partial output accompanies it.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: generation failed: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StripFences removes markdown code fences some backends wrap JSON output
// in, despite being told not to.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// New creates a provider from its configuration. Only openai-compatible
// backends are supported; the zhipu GLM endpoint speaks the same protocol.
func New(cfg config.LLMProvider) (Provider, error) {
	switch cfg.Type {
	case "", "openai", "openai-compatible":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider api key not configured")
		}
		return &openaiProvider{client: openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)}, nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Type)
	}
}

// openaiProvider adapts the chat-completions client to the Provider interface.
type openaiProvider struct {
	client *openai_provider.Client
}

func (p *openaiProvider) Generate(ctx context.Context, req Request) (Generation, error) {
	res, err := p.client.ChatCompletion(ctx, openai_provider.ChatRequest{
		Model:       req.Model,
		System:      req.System,
		Input:       req.Input,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Generation{}, err
	}
	return Generation{
		Text:         res.Text,
		FinishReason: res.FinishReason,
		PromptTokens: res.PromptTokens,
		OutputTokens: res.CompletionTokens,
	}, nil
}
