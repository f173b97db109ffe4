// Package openai implements the provider interface against OpenAI's chat
// completions API (GPT-4, GPT-3.5 Turbo, and compatible endpoints).
package openai

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
	DefaultModel = "gpt-4"

	// DefaultBaseURL is the OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"
)

// Options holds configuration for the OpenAI provider.
type Options struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Provider calls OpenAI's chat completions API.
type Provider struct {
	opts       Options
	httpClient *http.Client
}

// New creates an OpenAI provider. Missing fields fall back to defaults;
// the API key is checked by ValidateConfig, not here.
func New(opts Options) *Provider {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
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
func (p *Provider) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a chat completion call.
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

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.opts.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	if p.opts.Organization != "" {
		httpReq.Header.Set("OpenAI-Organization", p.opts.Organization)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if llm.NetTimeout(err) {
			return nil, llm.ProviderTimeoutError{Provider: p.Name(), Timeout: p.opts.Timeout}
		}
		return nil, llm.ProviderError{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		msg := string(raw)
		var ae apiError
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			msg = ae.Error.Message
		}
		return nil, llm.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: msg}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "decoding response: " + err.Error()}
	}
	if len(cr.Choices) == 0 {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "no choices returned"}
	}

	return &llm.GenerateResponse{
		Content:      cr.Choices[0].Message.Content,
		Model:        cr.Model,
		FinishReason: cr.Choices[0].FinishReason,
		Usage: llm.Usage{
			PromptTokens:     cr.Usage.PromptTokens,
			CompletionTokens: cr.Usage.CompletionTokens,
			TotalTokens:      cr.Usage.TotalTokens,
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
		return fmt.Errorf("openai: api key is required")
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
