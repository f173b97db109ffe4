// Package provider
package provider

import (
	"context"
	"time"

	"github.com/atelieredu/traza/pkg/llm"
)

// DefaultTimeout bounds a single generation call when no per-provider
// timeout is configured.
const DefaultTimeout = 60 * time.Second

// Provider defines the interface for calling a language model backend.
// Each implementation knows one vendor's wire format and translates it to
// and from the internal representation.
type Provider interface {
	// Name returns the canonical provider name (e.g., "anthropic", "openai", "gemini", "mock")
	Name() string

	// Generate performs a single completion call. Failures come back as
	// llm.ProviderError or llm.ProviderTimeoutError.
	Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error)

	// CountTokens estimates the token count of text without calling the
	// backend.
	CountTokens(text string) int

	// ValidateConfig checks that the provider has everything it needs to
	// make calls (API key, model name). Called at startup, not per request.
	ValidateConfig() error

	// ModelInfo describes the configured model.
	ModelInfo() llm.ModelInfo
}

// Options is the provider-independent configuration accepted by the
// factory. Zero values fall back to per-provider defaults.
type Options struct {
	// APIKey authenticates with the vendor. Ignored by the mock provider.
	APIKey string

	// Model selects the default model for generation calls.
	Model string

	// BaseURL overrides the vendor API endpoint, for proxies and tests.
	BaseURL string

	// Organization is sent as the OpenAI organization header when set.
	Organization string

	// Temperature is the default sampling temperature.
	Temperature float64

	// MaxTokens is the default completion cap.
	MaxTokens int

	// Timeout bounds each generation call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// EffectiveTimeout resolves the call timeout for these options.
func (o Options) EffectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}
