package llm

// ModelInfo describes a provider's configured model.
type ModelInfo struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	MaxTokens     int    `json:"max_tokens"`
	ContextWindow int    `json:"context_window,omitempty"`
}

// EstimateTokens is the shared token estimate used by providers that have
// no local tokenizer: roughly four characters per token, never below one
// for non-empty text. Estimates only; billing-grade counts come from Usage.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
