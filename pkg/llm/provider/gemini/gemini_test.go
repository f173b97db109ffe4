package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider/gemini"
)

var _ = Describe("Gemini Provider", func() {
	Describe("Generate", func() {
		It("maps assistant turns to the 'model' role and concatenates parts", func() {
			var captured map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/v1beta/models/gemini-1.5-flash:generateContent"))
				Expect(r.Header.Get("x-goog-api-key")).To(Equal("test-key"))
				Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())

				json.NewEncoder(w).Encode(map[string]any{
					"candidates": []map[string]any{{
						"content": map[string]any{
							"role":  "model",
							"parts": []map[string]any{{"text": "Primero, "}, {"text": "piensa en el caso base."}},
						},
						"finishReason": "STOP",
					}},
					"usageMetadata": map[string]any{
						"promptTokenCount":     10,
						"candidatesTokenCount": 5,
						"totalTokenCount":      15,
					},
				})
			}))
			defer server.Close()

			p := gemini.New(gemini.Options{APIKey: "test-key", BaseURL: server.URL})
			resp, err := p.Generate(context.Background(), &llm.GenerateRequest{
				SystemPrompt: "Eres un tutor.",
				Messages: []llm.Message{
					llm.UserMessage("¿Cómo empiezo la recursión?"),
					llm.AssistantMessage("¿Qué sabes del caso base?"),
					llm.UserMessage("Nada aún"),
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Content).To(Equal("Primero, piensa en el caso base."))
			Expect(resp.Usage.TotalTokens).To(Equal(15))

			contents := captured["contents"].([]any)
			Expect(contents).To(HaveLen(3))
			Expect(contents[1].(map[string]any)["role"]).To(Equal("model"))
			Expect(captured["systemInstruction"]).NotTo(BeNil())
		})

		It("surfaces API errors with status and message", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "API key not valid"},
				})
			}))
			defer server.Close()

			p := gemini.New(gemini.Options{APIKey: "bad", BaseURL: server.URL})
			_, err := p.Generate(context.Background(), &llm.GenerateRequest{
				Messages: []llm.Message{llm.UserMessage("hola")},
			})
			Expect(llm.IsProviderError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("API key not valid"))
		})

		It("rejects an empty candidate list", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
			}))
			defer server.Close()

			p := gemini.New(gemini.Options{APIKey: "test-key", BaseURL: server.URL})
			_, err := p.Generate(context.Background(), &llm.GenerateRequest{
				Messages: []llm.Message{llm.UserMessage("hola")},
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidateConfig", func() {
		It("requires an API key", func() {
			Expect(gemini.New(gemini.Options{}).ValidateConfig()).NotTo(Succeed())
			Expect(gemini.New(gemini.Options{APIKey: "k"}).ValidateConfig()).To(Succeed())
		})
	})
})
