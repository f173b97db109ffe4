package provider

import (
	"fmt"

	"github.com/atelieredu/traza/pkg/llm/provider/anthropic"
	"github.com/atelieredu/traza/pkg/llm/provider/gemini"
	"github.com/atelieredu/traza/pkg/llm/provider/mock"
	"github.com/atelieredu/traza/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Gemini    = "gemini"
	Mock      = "mock"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI, Gemini, Mock}
}

// New creates a new Provider instance for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string, opts Options) (Provider, error) {
	timeout := opts.EffectiveTimeout()

	switch providerType {
	case Anthropic:
		return anthropic.New(anthropic.Options{
			APIKey:      opts.APIKey,
			Model:       opts.Model,
			BaseURL:     opts.BaseURL,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			Timeout:     timeout,
		}), nil
	case OpenAI:
		return openai.New(openai.Options{
			APIKey:       opts.APIKey,
			Model:        opts.Model,
			BaseURL:      opts.BaseURL,
			Organization: opts.Organization,
			Temperature:  opts.Temperature,
			MaxTokens:    opts.MaxTokens,
			Timeout:      timeout,
		}), nil
	case Gemini:
		return gemini.New(gemini.Options{
			APIKey:      opts.APIKey,
			Model:       opts.Model,
			BaseURL:     opts.BaseURL,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
			Timeout:     timeout,
		}), nil
	case Mock:
		return mock.New(mock.Options{Model: opts.Model}), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
