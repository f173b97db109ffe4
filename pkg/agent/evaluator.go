package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/llm/provider"
)

const evaluatorSystemPrompt = `Eres un evaluador de competencias de programación. Analizas el proceso de
trabajo del estudiante, no solo el resultado. Respondes con retroalimentación
específica y accionable, citando momentos concretos de la sesión cuando sea
posible. No asignas notas numéricas en la conversación; eso lo hace el sistema.`

// Evaluator answers assessment questions during a session and produces the
// session's competency evaluation on completion.
type Evaluator struct {
	provider provider.Provider
}

// NewEvaluator creates an evaluator agent over the given provider.
func NewEvaluator(p provider.Provider) *Evaluator {
	return &Evaluator{provider: p}
}

func (e *Evaluator) Mode() cognitive.AgentMode { return cognitive.ModeEvaluator }

func (e *Evaluator) Respond(ctx context.Context, req Request) (string, error) {
	resp, err := e.provider.Generate(ctx, &llm.GenerateRequest{
		SystemPrompt: evaluatorSystemPrompt,
		Messages:     conversation(req),
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Evaluate derives the session's competency record from its trace sequence.
// The scoring is deterministic so a session always evaluates the same way;
// no provider call is made.
//
// Three dimensions feed the overall score: autonomy (inverse of the
// AI-dependency score), exploration (how much of the cognitive-state space
// the student visited), and integrity (absence of blocked delegation
// attempts).
func (e *Evaluator) Evaluate(session *cognitive.Session, seq *cognitive.TraceSequence) *cognitive.Evaluation {
	dependency := seq.AIDependencyScore()
	autonomy := 1 - dependency

	visited := make(map[cognitive.CognitiveState]bool)
	var blocked int
	for _, t := range seq.Traces {
		if t.CognitiveState != cognitive.StateUnknown {
			visited[t.CognitiveState] = true
		}
		if t.Blocked() {
			blocked++
		}
	}
	// Seven meaningful states exist; UNKNOWN does not count as exploration.
	exploration := float64(len(visited)) / 7

	integrity := 1.0
	if len(seq.Traces) > 0 {
		integrity = 1 - float64(blocked)/float64(len(seq.Traces))
	}

	score := 0.5*autonomy + 0.3*exploration + 0.2*integrity

	var strengths, improvements []string
	if autonomy >= 0.6 {
		strengths = append(strengths, "Trabajo mayormente autodirigido, con uso puntual de la IA")
	} else {
		improvements = append(improvements, "Reducir la dependencia de la IA: intentar primero y preguntar después")
	}
	if exploration >= 0.5 {
		strengths = append(strengths, "Recorrido cognitivo variado: explora, planifica y valida")
	} else {
		improvements = append(improvements, "Ampliar el proceso: dedicar tiempo a planificar y validar, no solo implementar")
	}
	if blocked == 0 {
		strengths = append(strengths, "Sin intentos de delegación total")
	} else {
		improvements = append(improvements, "Evitar pedir soluciones completas; formular preguntas específicas")
	}

	reasoning := fmt.Sprintf(
		"Evaluación sobre %d interacciones: dependencia de IA %.2f, %d estados cognitivos visitados, %d intentos bloqueados.",
		len(seq.Traces), dependency, len(visited), blocked)

	return &cognitive.Evaluation{
		ID:                uuid.NewString(),
		SessionID:         session.ID,
		StudentID:         session.StudentID,
		ActivityID:        session.ActivityID,
		OverallCompetency: cognitive.CompetencyForScore(score),
		OverallScore:      score,
		Dimensions: map[string]float64{
			"autonomia":   autonomy,
			"exploracion": exploration,
			"integridad":  integrity,
		},
		KeyStrengths:     strengths,
		ImprovementAreas: improvements,
		Reasoning:        reasoning,
		AIDependencyMetrics: map[string]float64{
			"dependency_score": dependency,
			"blocked_attempts": float64(blocked),
			"trace_count":      float64(len(seq.Traces)),
			"strategy_changes": float64(len(seq.StrategyChanges(0))),
			"states_visited":   float64(len(visited)),
		},
		CreatedAt: time.Now().UTC(),
	}
}
