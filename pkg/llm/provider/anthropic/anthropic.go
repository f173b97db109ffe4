// Package anthropic implements the provider interface against Anthropic's
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atelieredu/traza/pkg/llm"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultBaseURL is the Anthropic API URL.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens is sent when no cap is configured; the Messages API
	// requires an explicit max_tokens on every request.
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Options holds configuration for the Anthropic provider.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Provider calls the Anthropic Messages API.
type Provider struct {
	opts       Options
	httpClient *http.Client
}

// New creates an Anthropic provider.
func New(opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Provider{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

// Name returns the canonical provider name.
func (p *Provider) Name() string { return "anthropic" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a Messages API call.
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = p.opts.Model
	}
	temperature := p.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.opts.MaxTokens
	}

	mr := messagesRequest{
		Model:       model,
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	for _, m := range req.Messages {
		mr.Messages = append(mr.Messages, message{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(mr)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.opts.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.opts.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if llm.NetTimeout(err) {
			return nil, llm.ProviderTimeoutError{Provider: p.Name(), Timeout: p.opts.Timeout}
		}
		return nil, llm.ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "reading response: " + err.Error()}
	}

	var out messagesResponse
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if json.Unmarshal(raw, &out) == nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, llm.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "decoding response: " + err.Error()}
	}

	var text string
	for _, block := range out.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "no text content returned"}
	}

	return &llm.GenerateResponse{
		Content:      text,
		Model:        out.Model,
		FinishReason: out.StopReason,
		Usage: llm.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		},
	}, nil
}

// CountTokens approximates the token count of text.
func (p *Provider) CountTokens(text string) int {
	return llm.EstimateTokens(text)
}

// ValidateConfig checks that the provider can make calls.
func (p *Provider) ValidateConfig() error {
	if p.opts.APIKey == "" {
		return fmt.Errorf("anthropic: api key is required")
	}
	return nil
}

// ModelInfo describes the configured model.
func (p *Provider) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Provider:  p.Name(),
		Model:     p.opts.Model,
		MaxTokens: p.opts.MaxTokens,
	}
}
