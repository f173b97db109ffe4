package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// TraceabilityAgent reports the session's own recorded trajectory back to
// the student. Purely derived from the trace sequence; no provider call.
type TraceabilityAgent struct{}

// NewTraceabilityAgent creates the traceability agent.
func NewTraceabilityAgent() *TraceabilityAgent {
	return &TraceabilityAgent{}
}

func (t *TraceabilityAgent) Mode() cognitive.AgentMode { return cognitive.ModeTraceability }

func (t *TraceabilityAgent) Respond(ctx context.Context, req Request) (string, error) {
	if len(req.RecentTraces) == 0 {
		return "Aún no hay interacciones registradas en esta sesión.", nil
	}

	traces := make([]cognitive.Trace, len(req.RecentTraces))
	for i, tr := range req.RecentTraces {
		traces[i] = *tr
	}
	seq := cognitive.NewTraceSequence(req.Session.ID, req.Session.StudentID, req.Session.ActivityID, traces)

	var b strings.Builder
	fmt.Fprintf(&b, "Resumen de tu sesión (%d interacciones):\n", len(seq.Traces))

	path := seq.CognitivePath()
	labels := make([]string, len(path))
	for i, s := range path {
		labels[i] = string(s)
	}
	fmt.Fprintf(&b, "- Camino cognitivo: %s\n", strings.Join(labels, " → "))
	fmt.Fprintf(&b, "- Dependencia de la IA: %.2f (0 = todo tuyo, 1 = todo de la IA)\n", seq.AIDependencyScore())

	if changes := seq.StrategyChanges(0); len(changes) > 0 {
		fmt.Fprintf(&b, "- Cambios de estrategia detectados: %d\n", len(changes))
	}
	return b.String(), nil
}
