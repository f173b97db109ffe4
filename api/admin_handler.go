package api

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/llm/provider"
	"github.com/atelieredu/traza/pkg/llm/provider/anthropic"
	"github.com/atelieredu/traza/pkg/llm/provider/gemini"
	"github.com/atelieredu/traza/pkg/llm/provider/openai"
)

// ProviderConfig describes one LLM provider for the admin surface. API key
// values are never exposed, only whether one is configured.
type ProviderConfig struct {
	Provider         string  `json:"provider"`
	Enabled          bool    `json:"enabled"`
	APIKeyConfigured bool    `json:"api_key_configured"`
	Model            string  `json:"model,omitempty"`
	MaxTokens        uint    `json:"max_tokens,omitempty"`
	TimeoutSeconds   uint    `json:"timeout_seconds,omitempty"`
	PrivacyCompliant bool    `json:"privacy_compliant"`
	CostPer1KTokens  float64 `json:"cost_per_1k_tokens"`
}

// UpdateProviderRequest changes a provider's configuration. Nil fields are
// left untouched. Setting Enabled to true makes the provider the active
// one; a server restart is required for generation calls to pick it up.
type UpdateProviderRequest struct {
	Enabled        *bool   `json:"enabled,omitempty"`
	Model          *string `json:"model,omitempty"`
	MaxTokens      *uint   `json:"max_tokens,omitempty"`
	TimeoutSeconds *uint   `json:"timeout_seconds,omitempty"`
}

// defaultModels maps each provider to its default model, shown in the
// catalog when the provider is not the active one.
var defaultModels = map[string]string{
	provider.Mock:      "mock-model",
	provider.OpenAI:    openai.DefaultModel,
	provider.Gemini:    gemini.DefaultModel,
	provider.Anthropic: anthropic.DefaultModel,
}

// Cloud providers send student prompts off-site; only the mock stays
// within the institution.
var privacyCompliant = map[string]bool{
	provider.Mock: true,
}

var costPer1K = map[string]float64{
	provider.OpenAI:    0.03,
	provider.Anthropic: 0.015,
}

// providerCatalog builds the catalog from the current configuration.
func (s *Server) providerCatalog() []ProviderConfig {
	s.llmMu.RLock()
	defer s.llmMu.RUnlock()

	keySet := os.Getenv("TRAZA_LLM_API_KEY") != ""

	catalog := make([]ProviderConfig, 0, len(provider.SupportedProviders()))
	for _, name := range provider.SupportedProviders() {
		active := name == s.llmCfg.Provider

		cfg := ProviderConfig{
			Provider:         name,
			Enabled:          active,
			APIKeyConfigured: name == provider.Mock || (active && keySet),
			Model:            defaultModels[name],
			PrivacyCompliant: privacyCompliant[name],
			CostPer1KTokens:  costPer1K[name],
		}
		if active {
			if s.llmCfg.Model != "" {
				cfg.Model = s.llmCfg.Model
			}
			cfg.MaxTokens = s.llmCfg.MaxTokens
			cfg.TimeoutSeconds = s.llmCfg.TimeoutSeconds
		}
		catalog = append(catalog, cfg)
	}
	return catalog
}

func (s *Server) handleListProviders(c *fiber.Ctx) error {
	catalog := s.providerCatalog()
	return c.JSON(map[string]any{
		"count":     len(catalog),
		"providers": catalog,
	})
}

func (s *Server) handleGetProvider(c *fiber.Ctx) error {
	name := c.Params("name")
	for _, cfg := range s.providerCatalog() {
		if cfg.Provider == name {
			return c.JSON(cfg)
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "provider not found: " + name})
}

func (s *Server) handleUpdateProvider(c *fiber.Ctx) error {
	name := c.Params("name")

	known := false
	for _, p := range provider.SupportedProviders() {
		if p == name {
			known = true
			break
		}
	}
	if !known {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "provider not found: " + name})
	}

	var req UpdateProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	s.llmMu.Lock()
	changes := map[string]any{}
	if req.Enabled != nil && *req.Enabled {
		s.llmCfg.Provider = name
		changes["enabled"] = true
	}
	if name == s.llmCfg.Provider {
		if req.Model != nil {
			s.llmCfg.Model = *req.Model
			changes["model"] = *req.Model
		}
		if req.MaxTokens != nil {
			s.llmCfg.MaxTokens = *req.MaxTokens
			changes["max_tokens"] = *req.MaxTokens
		}
		if req.TimeoutSeconds != nil {
			s.llmCfg.TimeoutSeconds = *req.TimeoutSeconds
			changes["timeout_seconds"] = *req.TimeoutSeconds
		}
	}
	s.llmMu.Unlock()

	s.logger.Info("provider configuration updated", "provider", name, "changes", len(changes))

	return c.JSON(map[string]any{
		"provider":        name,
		"changes_applied": changes,
		"note":            "generation calls pick up provider changes on restart",
	})
}
