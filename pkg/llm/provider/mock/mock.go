// Package mock implements a deterministic in-process provider for
// development and tests. It never makes network calls.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelieredu/traza/pkg/llm"
)

// DefaultModel is the model name reported by the mock provider.
const DefaultModel = "mock-tutor-v1"

// Options holds configuration for the mock provider.
type Options struct {
	// Model overrides the reported model name.
	Model string

	// Response, when set, is returned verbatim for every call.
	Response string
}

// Provider returns canned tutoring responses derived from the last user
// message, so a full pipeline can run offline with stable output.
type Provider struct {
	opts Options
}

// New creates a mock provider.
func New(opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	return &Provider{opts: opts}
}

// Name returns the canonical provider name.
func (p *Provider) Name() string { return "mock" }

// Generate returns a deterministic response. The same request always
// produces the same output.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := p.opts.Response
	if content == "" {
		content = respond(lastUserMessage(req.Messages))
	}

	prompt := req.SystemPrompt
	for _, m := range req.Messages {
		prompt += m.Content
	}
	promptTokens := llm.EstimateTokens(prompt)
	completionTokens := llm.EstimateTokens(content)

	return &llm.GenerateResponse{
		Content:      content,
		Model:        p.opts.Model,
		FinishReason: "stop",
		Usage: llm.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func respond(prompt string) string {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "¿En qué parte del problema te gustaría que nos enfoquemos?"
	}
	if strings.HasSuffix(trimmed, "?") || strings.Contains(trimmed, "¿") {
		return fmt.Sprintf(
			"Buena pregunta. Antes de responder %q, ¿qué crees tú que podría ser la respuesta y por qué?",
			truncate(trimmed, 80))
	}
	return fmt.Sprintf(
		"Entiendo que planteas: %q. Pensemos juntos: ¿cuál sería el primer paso para abordarlo?",
		truncate(trimmed, 80))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// CountTokens approximates the token count of text.
func (p *Provider) CountTokens(text string) int {
	return llm.EstimateTokens(text)
}

// ValidateConfig always succeeds; the mock needs no credentials.
func (p *Provider) ValidateConfig() error { return nil }

// ModelInfo describes the mock model.
func (p *Provider) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: p.Name(), Model: p.opts.Model}
}
