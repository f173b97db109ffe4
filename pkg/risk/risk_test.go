package risk_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/risk"
	"github.com/atelieredu/traza/pkg/storage/inmemory"
)

func ptr(v float64) *float64 { return &v }

var _ = Describe("Analyst", func() {
	var (
		ctx     context.Context
		store   *inmemory.Store
		analyst *risk.Analyst
		session *cognitive.Session
		base    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		analyst = risk.NewAnalyst(store, risk.DefaultPolicy())
		session = &cognitive.Session{
			ID:         "sess-1",
			StudentID:  "student-1",
			ActivityID: "activity-1",
			Mode:       cognitive.ModeTutor,
			Status:     cognitive.StatusActive,
			StartedAt:  time.Now().UTC(),
		}
		base = time.Now().UTC()
	})

	trace := func(i int, involvement *float64, interaction cognitive.InteractionType, state cognitive.CognitiveState) *cognitive.Trace {
		return &cognitive.Trace{
			ID:              fmt.Sprintf("trace-%d", i),
			SessionID:       session.ID,
			StudentID:       session.StudentID,
			ActivityID:      session.ActivityID,
			Level:           cognitive.LevelN4Cognitivo,
			InteractionType: interaction,
			CognitiveState:  state,
			AIInvolvement:   involvement,
			Content:         fmt.Sprintf("prompt %d", i),
			Response:        "respuesta",
			CreatedAt:       base.Add(time.Duration(i) * time.Second),
		}
	}

	Describe("cognitive delegation streak", func() {
		It("fires after three consecutive high-involvement traces", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(1, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(2, ptr(0.75), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveLen(1))
			Expect(created[0].Type).To(Equal(cognitive.RiskCognitiveDelegation))
			Expect(created[0].Level).To(Equal(cognitive.RiskHigh))
			Expect(created[0].TraceIDs).To(Equal([]string{"trace-0", "trace-1", "trace-2"}))
		})

		It("does not fire when the streak is broken", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(1, ptr(0.2), cognitive.InteractionPrompt, cognitive.StateUnderstanding),
				trace(2, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(3, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})

		It("treats involvement exactly at the threshold as not high", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.7), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(1, ptr(0.7), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(2, ptr(0.7), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})

		It("is idempotent while the streak keeps growing", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(1, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(2, ptr(0.75), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveLen(1))

			traces = append(traces, trace(3, ptr(0.85), cognitive.InteractionPrompt, cognitive.StateValidation))
			created, err = analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())

			all, err := store.GetRisksBySession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})
	})

	Describe("repeated blocked delegation", func() {
		It("fires a CRITICAL risk after two blocked attempts", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.3), cognitive.InteractionPrompt, cognitive.StateUnderstanding),
				trace(1, nil, cognitive.InteractionBlocked, cognitive.StateImplementation),
				trace(2, nil, cognitive.InteractionBlocked, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(HaveLen(1))
			Expect(created[0].Type).To(Equal(cognitive.RiskRepeatedDelegation))
			Expect(created[0].Level).To(Equal(cognitive.RiskCritical))
			Expect(created[0].TraceIDs).To(Equal([]string{"trace-1", "trace-2"}))
		})

		It("stays quiet with a single blocked attempt", func() {
			traces := []*cognitive.Trace{
				trace(0, nil, cognitive.InteractionBlocked, cognitive.StateImplementation),
			}
			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})

		It("does not duplicate on a third blocked attempt", func() {
			traces := []*cognitive.Trace{
				trace(0, nil, cognitive.InteractionBlocked, cognitive.StateImplementation),
				trace(1, nil, cognitive.InteractionBlocked, cognitive.StateImplementation),
			}
			_, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())

			traces = append(traces, trace(2, nil, cognitive.InteractionBlocked, cognitive.StateImplementation))
			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})
	})

	Describe("uncritical acceptance", func() {
		It("fires when a long high-involvement run never validates", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.2), cognitive.InteractionPrompt, cognitive.StateUnderstanding),
				trace(1, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(2, ptr(0.85), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(3, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(4, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())

			var types []cognitive.RiskType
			for _, r := range created {
				types = append(types, r.Type)
			}
			Expect(types).To(ContainElement(cognitive.RiskUncriticalAcceptance))
		})

		It("stays quiet when the run includes validation", func() {
			traces := []*cognitive.Trace{
				trace(0, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(1, ptr(0.85), cognitive.InteractionPrompt, cognitive.StateValidation),
				trace(2, ptr(0.9), cognitive.InteractionPrompt, cognitive.StateImplementation),
				trace(3, ptr(0.8), cognitive.InteractionPrompt, cognitive.StateImplementation),
			}

			created, err := analyst.Analyze(ctx, session, traces)
			Expect(err).NotTo(HaveOccurred())
			for _, r := range created {
				Expect(r.Type).NotTo(Equal(cognitive.RiskUncriticalAcceptance))
			}
		})
	})

	Describe("empty window", func() {
		It("does nothing", func() {
			created, err := analyst.Analyze(ctx, session, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeEmpty())
		})
	})
})

var _ = Describe("Aggregate", func() {
	It("returns zeroed stats for an empty collection", func() {
		stats := risk.Aggregate(nil)
		Expect(stats.Total).To(BeZero())
		Expect(stats.ResolutionRate).To(BeZero())
	})

	It("counts by level, dimension, and type in one pass", func() {
		risks := []*cognitive.Risk{
			{Type: cognitive.RiskCognitiveDelegation, Level: cognitive.RiskHigh, Dimension: cognitive.DimensionCognitive, Resolved: true},
			{Type: cognitive.RiskCognitiveDelegation, Level: cognitive.RiskHigh, Dimension: cognitive.DimensionCognitive},
			{Type: cognitive.RiskRepeatedDelegation, Level: cognitive.RiskCritical, Dimension: cognitive.DimensionEthical},
			{Type: cognitive.RiskUncriticalAcceptance, Level: cognitive.RiskMedium, Dimension: cognitive.DimensionTechnical, Resolved: true},
		}

		stats := risk.Aggregate(risks)
		Expect(stats.Total).To(Equal(4))
		Expect(stats.ByLevel["HIGH"]).To(Equal(2))
		Expect(stats.ByLevel["CRITICAL"]).To(Equal(1))
		Expect(stats.ByDimension["COGNITIVE"]).To(Equal(2))
		Expect(stats.ByType["COGNITIVE_DELEGATION"]).To(Equal(2))
		Expect(stats.Resolved).To(Equal(2))
		Expect(stats.ResolutionRate).To(BeNumerically("~", 0.5, 1e-9))
	})
})
