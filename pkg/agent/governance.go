package agent

import (
	"context"
	"strings"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// GovernanceAgent answers questions about usage policy locally, without a
// provider call: the policy explanation must be available even when the
// LLM backend is down, and it must never vary.
type GovernanceAgent struct{}

// NewGovernanceAgent creates the governance agent.
func NewGovernanceAgent() *GovernanceAgent {
	return &GovernanceAgent{}
}

func (g *GovernanceAgent) Mode() cognitive.AgentMode { return cognitive.ModeGovernance }

func (g *GovernanceAgent) Respond(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	b.WriteString("Política de uso de la IA en esta actividad:\n")
	b.WriteString("- Puedes pedir explicaciones, pistas y revisión de tu propio trabajo.\n")
	b.WriteString("- No puedes pedir soluciones completas listas para entregar; esas solicitudes se bloquean.\n")
	b.WriteString("- Todas las interacciones quedan registradas con su nivel de involucramiento de la IA.\n")

	var blocked int
	for _, t := range req.RecentTraces {
		if t.Blocked() {
			blocked++
		}
	}
	if blocked > 0 {
		b.WriteString("\nEn esta sesión se han bloqueado solicitudes de delegación total. ")
		b.WriteString("Reformula mostrando tu propio intento o pidiendo una pista concreta.")
	}
	return b.String(), nil
}
