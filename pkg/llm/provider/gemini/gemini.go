// Package gemini implements the provider interface against Google's
// Gemini generateContent API.
package gemini

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
	DefaultModel = "gemini-1.5-flash"

	// DefaultBaseURL is the Gemini API URL.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Options holds configuration for the Gemini provider.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Provider calls the Gemini generateContent API.
type Provider struct {
	opts       Options
	httpClient *http.Client
}

// New creates a Gemini provider.
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
func (p *Provider) Name() string { return "gemini" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate performs a generateContent call. Assistant turns are sent with
// the "model" role, which is what Gemini expects.
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

	gr := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		gr.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		gr.Contents = append(gr.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.opts.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.opts.APIKey)

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

	var out generateResponse
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
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, llm.ProviderError{Provider: p.Name(), Message: "no candidates returned"}
	}

	var text string
	for _, pt := range out.Candidates[0].Content.Parts {
		text += pt.Text
	}

	return &llm.GenerateResponse{
		Content:      text,
		Model:        model,
		FinishReason: out.Candidates[0].FinishReason,
		Usage: llm.Usage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      out.UsageMetadata.TotalTokenCount,
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
		return fmt.Errorf("gemini: api key is required")
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
