package agent_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/agent"
	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider/mock"
)

// capturingProvider records the last request so tests can inspect how
// agents build conversations.
type capturingProvider struct {
	lastReq *llm.GenerateRequest
	err     error
}

func (c *capturingProvider) Name() string { return "capturing" }

func (c *capturingProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.GenerateResponse{Content: "respuesta simulada"}, nil
}

func (c *capturingProvider) CountTokens(text string) int { return llm.EstimateTokens(text) }
func (c *capturingProvider) ValidateConfig() error       { return nil }
func (c *capturingProvider) ModelInfo() llm.ModelInfo    { return llm.ModelInfo{Provider: "capturing"} }

func involvement(v float64) *float64 { return &v }

func testSession() *cognitive.Session {
	return &cognitive.Session{
		ID:         "sess-1",
		StudentID:  "student-1",
		ActivityID: "activity-1",
		Mode:       cognitive.ModeTutor,
		Status:     cognitive.StatusActive,
		StartedAt:  time.Now().UTC(),
	}
}

var _ = Describe("Registry", func() {
	It("dispatches by mode", func() {
		reg := agent.NewRegistry(
			agent.NewTutor(mock.New(mock.Options{})),
			agent.NewGovernanceAgent(),
		)

		a, ok := reg.Get(cognitive.ModeTutor)
		Expect(ok).To(BeTrue())
		Expect(a.Mode()).To(Equal(cognitive.ModeTutor))

		_, ok = reg.Get(cognitive.ModeSimulator)
		Expect(ok).To(BeFalse())
	})

	It("replaces an agent registered for the same mode", func() {
		first := agent.NewTutor(mock.New(mock.Options{Response: "primera"}))
		second := agent.NewTutor(mock.New(mock.Options{Response: "segunda"}))
		reg := agent.NewRegistry(first, second)

		a, _ := reg.Get(cognitive.ModeTutor)
		resp, err := a.Respond(context.Background(), agent.Request{
			Prompt: "hola", Session: testSession(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(Equal("segunda"))
	})
})

var _ = Describe("Tutor", func() {
	It("replays recent unblocked traces as conversation history", func() {
		p := &capturingProvider{}
		tutor := agent.NewTutor(p)

		_, err := tutor.Respond(context.Background(), agent.Request{
			Prompt:  "¿Y ahora qué?",
			Session: testSession(),
			RecentTraces: []*cognitive.Trace{
				{Content: "¿Qué es una pila?", Response: "Una estructura LIFO...", InteractionType: cognitive.InteractionPrompt},
				{Content: "Dame el código completo", Response: "bloqueado", InteractionType: cognitive.InteractionBlocked},
				{Content: "¿Cómo hago push?", Response: "¿Dónde crees que se inserta?", InteractionType: cognitive.InteractionPrompt},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.lastReq.SystemPrompt).NotTo(BeEmpty())

		// Two unblocked traces (user+assistant each) plus the new prompt.
		Expect(p.lastReq.Messages).To(HaveLen(5))
		Expect(p.lastReq.Messages[0].Content).To(Equal("¿Qué es una pila?"))
		Expect(p.lastReq.Messages[4].Role).To(Equal(llm.RoleUser))
		Expect(p.lastReq.Messages[4].Content).To(Equal("¿Y ahora qué?"))
	})

	It("propagates provider failures unchanged", func() {
		p := &capturingProvider{err: llm.ProviderError{Provider: "capturing", Message: "boom"}}
		tutor := agent.NewTutor(p)

		_, err := tutor.Respond(context.Background(), agent.Request{
			Prompt: "hola", Session: testSession(),
		})
		var pe llm.ProviderError
		Expect(errors.As(err, &pe)).To(BeTrue())
	})
})

var _ = Describe("Evaluator", func() {
	evaluator := agent.NewEvaluator(mock.New(mock.Options{}))

	seqOf := func(traces ...cognitive.Trace) *cognitive.TraceSequence {
		return cognitive.NewTraceSequence("sess-1", "student-1", "activity-1", traces)
	}

	Describe("Evaluate", func() {
		It("is deterministic apart from id and timestamp", func() {
			seq := seqOf(
				cognitive.Trace{CognitiveState: cognitive.StateUnderstanding, AIInvolvement: involvement(0.3)},
				cognitive.Trace{CognitiveState: cognitive.StatePlanning, AIInvolvement: involvement(0.4)},
			)
			first := evaluator.Evaluate(testSession(), seq)
			second := evaluator.Evaluate(testSession(), seq)
			Expect(second.OverallScore).To(Equal(first.OverallScore))
			Expect(second.Dimensions).To(Equal(first.Dimensions))
			Expect(second.OverallCompetency).To(Equal(first.OverallCompetency))
		})

		It("scores self-directed varied sessions higher than delegated ones", func() {
			varied := seqOf(
				cognitive.Trace{CognitiveState: cognitive.StateUnderstanding, AIInvolvement: involvement(0.2)},
				cognitive.Trace{CognitiveState: cognitive.StatePlanning, AIInvolvement: involvement(0.3)},
				cognitive.Trace{CognitiveState: cognitive.StateImplementation, AIInvolvement: involvement(0.4)},
				cognitive.Trace{CognitiveState: cognitive.StateValidation, AIInvolvement: involvement(0.2)},
			)
			delegated := seqOf(
				cognitive.Trace{CognitiveState: cognitive.StateImplementation, AIInvolvement: involvement(0.9)},
				cognitive.Trace{CognitiveState: cognitive.StateImplementation, AIInvolvement: involvement(0.95)},
				cognitive.Trace{CognitiveState: cognitive.StateImplementation, AIInvolvement: involvement(0.9), InteractionType: cognitive.InteractionBlocked},
			)

			high := evaluator.Evaluate(testSession(), varied)
			low := evaluator.Evaluate(testSession(), delegated)
			Expect(high.OverallScore).To(BeNumerically(">", low.OverallScore))
			Expect(high.ImprovementAreas).NotTo(ContainElement(ContainSubstring("delegación")))
		})

		It("keeps the score within [0,1]", func() {
			eval := evaluator.Evaluate(testSession(), seqOf())
			Expect(eval.OverallScore).To(BeNumerically(">=", 0))
			Expect(eval.OverallScore).To(BeNumerically("<=", 1))
		})
	})
})

var _ = Describe("GovernanceAgent", func() {
	It("explains the policy without a provider", func() {
		g := agent.NewGovernanceAgent()
		resp, err := g.Respond(context.Background(), agent.Request{
			Prompt: "¿Qué puedo pedirle a la IA?", Session: testSession(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(ContainSubstring("Política de uso"))
	})

	It("mentions prior blocks when the session has them", func() {
		g := agent.NewGovernanceAgent()
		resp, err := g.Respond(context.Background(), agent.Request{
			Prompt:  "¿por qué me bloqueó?",
			Session: testSession(),
			RecentTraces: []*cognitive.Trace{
				{InteractionType: cognitive.InteractionBlocked},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(ContainSubstring("se han bloqueado"))
	})
})

var _ = Describe("TraceabilityAgent", func() {
	It("summarizes the recorded trajectory", func() {
		tr := agent.NewTraceabilityAgent()
		resp, err := tr.Respond(context.Background(), agent.Request{
			Prompt:  "¿cómo voy?",
			Session: testSession(),
			RecentTraces: []*cognitive.Trace{
				{CognitiveState: cognitive.StateUnderstanding, AIInvolvement: involvement(0.2), CreatedAt: time.Now()},
				{CognitiveState: cognitive.StateImplementation, AIInvolvement: involvement(0.6), CreatedAt: time.Now().Add(time.Second)},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(ContainSubstring("UNDERSTANDING"))
		Expect(resp).To(ContainSubstring("Dependencia de la IA"))
	})

	It("handles an empty session", func() {
		tr := agent.NewTraceabilityAgent()
		resp, err := tr.Respond(context.Background(), agent.Request{
			Prompt: "¿cómo voy?", Session: testSession(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(ContainSubstring("Aún no hay interacciones"))
	})
})
