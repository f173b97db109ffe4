package agent

import (
	"context"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider"
)

const simulatorSystemPrompt = `Eres un simulador de escenarios técnicos. Interpretas el papel que el
ejercicio requiera (cliente con requisitos ambiguos, compañero de equipo,
entrevistador técnico, sistema que produce salidas) y mantienes el personaje
durante toda la sesión. No sales del rol para dar soluciones; el estudiante
debe resolver el escenario por sí mismo.`

// Simulator role-plays exercise scenarios without breaking character.
type Simulator struct {
	provider provider.Provider
}

// NewSimulator creates a simulator agent over the given provider.
func NewSimulator(p provider.Provider) *Simulator {
	return &Simulator{provider: p}
}

func (s *Simulator) Mode() cognitive.AgentMode { return cognitive.ModeSimulator }

func (s *Simulator) Respond(ctx context.Context, req Request) (string, error) {
	resp, err := s.provider.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: simulatorSystemPrompt,
		Messages:     conversation(req),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
