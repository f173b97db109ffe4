package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/agent"
	"github.com/atelieredu/traza/pkg/classifier"
	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/export"
	"github.com/atelieredu/traza/pkg/gateway"
	"github.com/atelieredu/traza/pkg/governance"
	"github.com/atelieredu/traza/pkg/llm/provider/mock"
	"github.com/atelieredu/traza/pkg/risk"
	"github.com/atelieredu/traza/pkg/storage/inmemory"
)

func newTestServer() (*Server, *inmemory.Store) {
	store := inmemory.NewStore()

	class, err := classifier.New()
	Expect(err).NotTo(HaveOccurred())

	gate, err := governance.New()
	Expect(err).NotTo(HaveOccurred())

	p := mock.New(mock.Options{})
	registry := agent.NewRegistry(
		agent.NewTutor(p),
		agent.NewSimulator(p),
		agent.NewEvaluator(p),
		agent.NewGovernanceAgent(),
		agent.NewTraceabilityAgent(),
	)

	gw, err := gateway.New(gateway.Options{
		Store:      store,
		Classifier: class,
		Gate:       gate,
		Agents:     registry,
		Analyst:    risk.NewAnalyst(store, risk.DefaultPolicy()),
		Evaluator:  agent.NewEvaluator(p),
	})
	Expect(err).NotTo(HaveOccurred())

	exporter := export.NewExporter(store, []byte("test-secret"), nil)

	llmCfg := config.LLMConfig{
		Provider:       "mock",
		MaxTokens:      2000,
		TimeoutSeconds: 60,
	}

	return NewServer(Config{ListenAddr: ":0"}, gw, exporter, llmCfg, nil), store
}

// request performs an in-process request and decodes the JSON response
// into a generic map.
func request(s *Server, method, path string, body any) (int, map[string]any) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
	}
	return resp.StatusCode, decoded
}

// createSession opens a session through the API and returns its id.
func createSession(s *Server, studentID, activityID string) string {
	status, body := request(s, http.MethodPost, "/v1/sessions", CreateSessionRequest{
		StudentID:  studentID,
		ActivityID: activityID,
	})
	Expect(status).To(Equal(http.StatusCreated))
	id, ok := body["id"].(string)
	Expect(ok).To(BeTrue())
	return id
}

var _ = Describe("Server", func() {
	var (
		server *Server
		store  *inmemory.Store
	)

	BeforeEach(func() {
		server, store = newTestServer()
	})

	Describe("ping", func() {
		It("responds with pong", func() {
			req, err := http.NewRequest(http.MethodGet, "/ping", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			raw, _ := io.ReadAll(resp.Body)
			Expect(string(raw)).To(Equal(`"pong"`))
		})
	})

	Describe("sessions", func() {
		It("creates a session in tutor mode", func() {
			status, body := request(server, http.MethodPost, "/v1/sessions", CreateSessionRequest{
				StudentID:  "student-1",
				ActivityID: "prog2_tp1",
			})
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body["student_id"]).To(Equal("student-1"))
			Expect(body["mode"]).To(Equal("TUTOR"))
			Expect(body["status"]).To(Equal("active"))
		})

		It("rejects a session without a student id", func() {
			status, body := request(server, http.MethodPost, "/v1/sessions", CreateSessionRequest{
				ActivityID: "prog2_tp1",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(ContainSubstring("student_id"))
		})

		It("returns a created session by id", func() {
			id := createSession(server, "student-1", "prog2_tp1")

			status, body := request(server, http.MethodGet, "/v1/sessions/"+id, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["id"]).To(Equal(id))
		})

		It("returns 404 for an unknown session", func() {
			status, _ := request(server, http.MethodGet, "/v1/sessions/nope", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("switches the agent mode", func() {
			id := createSession(server, "student-1", "prog2_tp1")

			status, body := request(server, http.MethodPatch, "/v1/sessions/"+id, UpdateSessionRequest{Mode: "SIMULATOR"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["mode"]).To(Equal("SIMULATOR"))
		})

		It("rejects an unknown mode", func() {
			id := createSession(server, "student-1", "prog2_tp1")

			status, _ := request(server, http.MethodPatch, "/v1/sessions/"+id, UpdateSessionRequest{Mode: "WIZARD"})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("rejects an empty update", func() {
			id := createSession(server, "student-1", "prog2_tp1")

			status, _ := request(server, http.MethodPatch, "/v1/sessions/"+id, UpdateSessionRequest{})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("completes a session and records an evaluation", func() {
			id := createSession(server, "student-1", "prog2_tp1")

			status, body := request(server, http.MethodPatch, "/v1/sessions/"+id, UpdateSessionRequest{Status: "completed"})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["status"]).To(Equal("completed"))
			Expect(body["ended_at"]).NotTo(BeNil())

			status, body = request(server, http.MethodGet, "/v1/sessions/"+id+"/evaluations", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 1))
		})

		It("lists a student's sessions", func() {
			createSession(server, "student-1", "prog2_tp1")
			createSession(server, "student-1", "prog2_tp2")
			createSession(server, "student-2", "prog2_tp1")

			status, body := request(server, http.MethodGet, "/v1/students/student-1/sessions", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 2))
		})
	})

	Describe("interactions", func() {
		var sessionID string

		BeforeEach(func() {
			sessionID = createSession(server, "student-1", "prog2_tp1")
		})

		It("records an allowed interaction", func() {
			status, body := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{
				Prompt: "¿Qué es una cola?",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["blocked"]).To(BeFalse())
			Expect(body["trace_id"]).NotTo(BeEmpty())
			Expect(body["message"]).NotTo(BeEmpty())
		})

		It("blocks a total delegation prompt", func() {
			status, body := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{
				Prompt: "Dame el código completo de la cola circular",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["blocked"]).To(BeTrue())
			Expect(body["block_reason"]).NotTo(BeEmpty())
		})

		It("rejects an empty prompt", func() {
			status, _ := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{
				Prompt: "   ",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown session", func() {
			status, _ := request(server, http.MethodPost, "/v1/sessions/nope/interactions", InteractionRequest{
				Prompt: "¿Qué es una cola?",
			})
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("rejects interactions on a completed session", func() {
			status, _ := request(server, http.MethodPatch, "/v1/sessions/"+sessionID, UpdateSessionRequest{Status: "completed"})
			Expect(status).To(Equal(http.StatusOK))

			status, body := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{
				Prompt: "¿Qué es una cola?",
			})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body["error"]).To(ContainSubstring("not active"))
		})
	})

	Describe("traces", func() {
		var sessionID string

		BeforeEach(func() {
			sessionID = createSession(server, "student-1", "prog2_tp1")
			for _, prompt := range []string{
				"¿Qué es una cola?",
				"Dame el código completo de la cola circular",
				"¿Cómo pruebo el caso del buffer lleno?",
			} {
				status, _ := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{Prompt: prompt})
				Expect(status).To(Equal(http.StatusOK))
			}
		})

		It("lists all session traces", func() {
			status, body := request(server, http.MethodGet, "/v1/sessions/"+sessionID+"/traces", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 3))
		})

		It("filters traces by interaction type", func() {
			path := "/v1/sessions/" + sessionID + "/traces?interaction_type=" + string(cognitive.InteractionBlocked)
			status, body := request(server, http.MethodGet, path, nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 1))
		})

		It("paginates trace listings", func() {
			status, body := request(server, http.MethodGet, "/v1/sessions/"+sessionID+"/traces?limit=2&offset=2", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 1))
		})

		It("returns the trace sequence analysis", func() {
			status, body := request(server, http.MethodGet, "/v1/sessions/"+sessionID+"/trace-sequence", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["session_id"]).To(Equal(sessionID))
			Expect(body["cognitive_path"]).To(HaveLen(3))
		})
	})

	Describe("risks", func() {
		var sessionID string

		BeforeEach(func() {
			sessionID = createSession(server, "student-1", "prog2_tp1")
			// Two blocked delegation attempts trip the repeated-delegation
			// detector.
			for i := 0; i < 2; i++ {
				status, _ := request(server, http.MethodPost, "/v1/sessions/"+sessionID+"/interactions", InteractionRequest{
					Prompt: "Dame el código completo de la cola circular",
				})
				Expect(status).To(Equal(http.StatusOK))
			}
		})

		It("reports session risks with statistics", func() {
			status, body := request(server, http.MethodGet, "/v1/sessions/"+sessionID+"/risks", nil)
			Expect(status).To(Equal(http.StatusOK))

			risks, ok := body["risks"].([]any)
			Expect(ok).To(BeTrue())
			Expect(risks).NotTo(BeEmpty())

			stats, ok := body["stats"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(stats["total"]).To(BeNumerically("==", len(risks)))
		})

		It("aggregates stats for a student", func() {
			status, body := request(server, http.MethodGet, "/v1/risks/stats?student_id=student-1", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["total"]).To(BeNumerically(">=", 1))
		})

		It("requires a stats filter", func() {
			status, _ := request(server, http.MethodGet, "/v1/risks/stats", nil)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("resolves a risk", func() {
			_, body := request(server, http.MethodGet, "/v1/sessions/"+sessionID+"/risks", nil)
			risks := body["risks"].([]any)
			riskID := risks[0].(map[string]any)["id"].(string)

			status, resolved := request(server, http.MethodPost, "/v1/risks/"+riskID+"/resolve", ResolveRiskRequest{
				Notes: "discussed with the student",
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(resolved["resolved"]).To(BeTrue())
			Expect(resolved["resolution_notes"]).To(Equal("discussed with the student"))
		})

		It("returns 404 when resolving an unknown risk", func() {
			status, _ := request(server, http.MethodPost, "/v1/risks/nope/resolve", ResolveRiskRequest{Notes: "x"})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("admin providers", func() {
		It("lists the provider catalog with the active one enabled", func() {
			status, body := request(server, http.MethodGet, "/v1/admin/llm/providers", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["count"]).To(BeNumerically("==", 4))

			providers := body["providers"].([]any)
			enabled := map[string]bool{}
			for _, p := range providers {
				entry := p.(map[string]any)
				enabled[entry["provider"].(string)] = entry["enabled"].(bool)
			}
			Expect(enabled["mock"]).To(BeTrue())
			Expect(enabled["openai"]).To(BeFalse())
		})

		It("returns one provider's configuration", func() {
			status, body := request(server, http.MethodGet, "/v1/admin/llm/providers/openai", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["provider"]).To(Equal("openai"))
			Expect(body["privacy_compliant"]).To(BeFalse())
		})

		It("returns 404 for an unknown provider", func() {
			status, _ := request(server, http.MethodGet, "/v1/admin/llm/providers/cohere", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("switches the active provider via PATCH", func() {
			enable := true
			model := "gpt-4o"
			status, body := request(server, http.MethodPatch, "/v1/admin/llm/providers/openai", UpdateProviderRequest{
				Enabled: &enable,
				Model:   &model,
			})
			Expect(status).To(Equal(http.StatusOK))

			changes := body["changes_applied"].(map[string]any)
			Expect(changes).To(HaveKey("enabled"))
			Expect(changes["model"]).To(Equal("gpt-4o"))

			status, body = request(server, http.MethodGet, "/v1/admin/llm/providers/openai", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["enabled"]).To(BeTrue())
			Expect(body["model"]).To(Equal("gpt-4o"))
		})

		It("rejects a PATCH to an unknown provider", func() {
			enable := true
			status, _ := request(server, http.MethodPatch, "/v1/admin/llm/providers/cohere", UpdateProviderRequest{Enabled: &enable})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("research export", func() {
		seed := func(n int, activityID string) {
			monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			for i := 0; i < n; i++ {
				session := &cognitive.Session{
					ID:         fmt.Sprintf("%s-sess-%d", activityID, i),
					StudentID:  fmt.Sprintf("student-%d", i),
					ActivityID: activityID,
					Mode:       cognitive.ModeTutor,
					Status:     cognitive.StatusCompleted,
					StartedAt:  monday.Add(time.Duration(i) * time.Hour),
				}
				Expect(store.SaveSession(context.Background(), session)).To(Succeed())
			}
		}

		It("exports an anonymized dataset", func() {
			seed(5, "prog2_tp1")

			status, body := request(server, http.MethodPost, "/v1/export/research", export.Request{
				IncludeSessions: true,
				KAnonymity:      5,
			})
			Expect(status).To(Equal(http.StatusOK))
			Expect(body["total_records"]).To(BeNumerically("==", 5))
			Expect(body["export_id"]).NotTo(BeEmpty())

			report := body["validation_report"].(map[string]any)
			Expect(report["valid"]).To(BeTrue())
		})

		It("rejects an export violating k-anonymity", func() {
			seed(5, "prog2_tp1")
			seed(1, "prog2_tp2")

			status, body := request(server, http.MethodPost, "/v1/export/research", export.Request{
				IncludeSessions: true,
				KAnonymity:      5,
			})
			Expect(status).To(Equal(http.StatusUnprocessableEntity))
			Expect(body["error"]).To(ContainSubstring("k-anonymity"))
			Expect(body["validation_report"]).NotTo(BeNil())
		})

		It("returns 404 when nothing matches", func() {
			status, _ := request(server, http.MethodPost, "/v1/export/research", export.Request{})
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})
})
