package agent

import (
	"context"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider"
)

const tutorSystemPrompt = `Eres un tutor socrático de programación. Guías al estudiante con preguntas
y pistas graduales, nunca con soluciones completas. Reglas:
- No escribas código completo; a lo sumo fragmentos ilustrativos de 2-3 líneas.
- Responde a preguntas conceptuales con explicaciones claras y un ejemplo.
- Cuando el estudiante esté atascado, pregunta qué ha intentado antes de dar la siguiente pista.
- Celebra el razonamiento propio del estudiante.`

// Tutor is the default agent: Socratic guidance without complete solutions.
type Tutor struct {
	provider provider.Provider
}

// NewTutor creates a tutor agent over the given provider.
func NewTutor(p provider.Provider) *Tutor {
	return &Tutor{provider: p}
}

func (t *Tutor) Mode() cognitive.AgentMode { return cognitive.ModeTutor }

func (t *Tutor) Respond(ctx context.Context, req Request) (string, error) {
	resp, err := t.provider.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: tutorSystemPrompt,
		Messages:     conversation(req),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
