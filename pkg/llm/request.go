package llm

// GenerateRequest is a provider-agnostic completion request. The system
// prompt travels separately from the message history because providers
// disagree on where it belongs in the wire format.
type GenerateRequest struct {
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	// Model overrides the provider's configured model when non-empty.
	Model string `json:"model,omitempty"`

	// Temperature overrides the provider's configured temperature when
	// non-nil. A nil value means "use the provider default".
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}
