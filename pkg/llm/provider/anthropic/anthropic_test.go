package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider/anthropic"
)

var _ = Describe("Anthropic Provider", func() {
	Describe("Generate", func() {
		It("sends the system prompt in the system field and always sets max_tokens", func() {
			var captured map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1/messages"))
				Expect(r.Header.Get("x-api-key")).To(Equal("test-key"))
				Expect(r.Header.Get("anthropic-version")).To(Equal("2023-06-01"))
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())

				json.NewEncoder(w).Encode(map[string]any{
					"model": "claude-sonnet-4-20250514",
					"content": []map[string]any{
						{"type": "text", "text": "¿Qué invariante se rompe?"},
					},
					"stop_reason": "end_turn",
					"usage":       map[string]any{"input_tokens": 9, "output_tokens": 6},
				})
			}))
			defer server.Close()

			p := anthropic.New(anthropic.Options{APIKey: "test-key", BaseURL: server.URL})
			resp, err := p.Generate(context.Background(), &llm.GenerateRequest{
				SystemPrompt: "Eres un tutor.",
				Messages:     []llm.Message{llm.UserMessage("Mi código falla")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("¿Qué invariante se rompe?"))
			Expect(resp.FinishReason).To(Equal("end_turn"))
			Expect(resp.Usage.TotalTokens).To(Equal(15))

			Expect(captured["system"]).To(Equal("Eres un tutor."))
			Expect(captured["max_tokens"]).To(BeNumerically("==", anthropic.DefaultMaxTokens))
			messages := captured["messages"].([]any)
			Expect(messages).To(HaveLen(1))
		})

		It("surfaces API errors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "rate limited"},
				})
			}))
			defer server.Close()

			p := anthropic.New(anthropic.Options{APIKey: "test-key", BaseURL: server.URL})
			_, err := p.Generate(context.Background(), &llm.GenerateRequest{
				Messages: []llm.Message{llm.UserMessage("hola")},
			})
			Expect(llm.IsProviderError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("rate limited"))
		})
	})

	Describe("ValidateConfig", func() {
		It("requires an API key", func() {
			Expect(anthropic.New(anthropic.Options{}).ValidateConfig()).NotTo(Succeed())
			Expect(anthropic.New(anthropic.Options{APIKey: "k"}).ValidateConfig()).To(Succeed())
		})
	})
})
