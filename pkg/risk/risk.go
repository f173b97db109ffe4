// Package risk detects learning-risk patterns over a session's trace
// window and records them as append-only Risk artifacts.
//
// Detection is incremental: the analyst runs after every trace append, and
// emission is idempotent per evidence set, so re-analyzing an unchanged
// window never duplicates a risk.
package risk

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/storage"
)

// Policy holds the detection thresholds. The defaults mirror the values
// used in pilot courses; they are tunable policy, not invariants.
type Policy struct {
	// HighInvolvement is the involvement score above which a trace counts
	// toward a delegation streak.
	HighInvolvement float64

	// StreakLength is how many consecutive high-involvement traces trigger
	// a COGNITIVE_DELEGATION risk.
	StreakLength int

	// BlockedAttempts is how many blocked delegation attempts in one
	// session trigger a REPEATED_DELEGATION risk.
	BlockedAttempts int

	// AcceptanceWindow is how many consecutive high-involvement traces
	// without any validation or debugging activity trigger an
	// UNCRITICAL_ACCEPTANCE risk.
	AcceptanceWindow int

	// InvolvementFallback substitutes for traces with no involvement
	// estimate.
	InvolvementFallback float64
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		HighInvolvement:     0.7,
		StreakLength:        3,
		BlockedAttempts:     2,
		AcceptanceWindow:    4,
		InvolvementFallback: cognitive.DefaultInvolvementFallback,
	}
}

// Analyst scans trace windows and appends newly detected risks.
type Analyst struct {
	policy Policy
	risks  storage.RiskStore
}

// NewAnalyst creates an analyst writing through the given risk store.
// Zero-valued policy fields are replaced with defaults.
func NewAnalyst(risks storage.RiskStore, policy Policy) *Analyst {
	def := DefaultPolicy()
	if policy.HighInvolvement <= 0 {
		policy.HighInvolvement = def.HighInvolvement
	}
	if policy.StreakLength <= 0 {
		policy.StreakLength = def.StreakLength
	}
	if policy.BlockedAttempts <= 0 {
		policy.BlockedAttempts = def.BlockedAttempts
	}
	if policy.AcceptanceWindow <= 0 {
		policy.AcceptanceWindow = def.AcceptanceWindow
	}
	if policy.InvolvementFallback <= 0 {
		policy.InvolvementFallback = def.InvolvementFallback
	}
	return &Analyst{policy: policy, risks: risks}
}

// Analyze scans the session's trace window, persists any newly detected
// risks, and returns them. Risks whose evidence trace-id set already
// exists for the same risk type are skipped.
func (a *Analyst) Analyze(ctx context.Context, session *cognitive.Session, traces []*cognitive.Trace) ([]*cognitive.Risk, error) {
	if len(traces) == 0 {
		return nil, nil
	}

	existing, err := a.risks.GetRisksBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("loading existing risks: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[evidenceKey(r.Type, r.TraceIDs)] = true
	}

	candidates := a.detectDelegationStreak(session, traces)
	if r := a.detectRepeatedBlocked(session, traces); r != nil {
		candidates = append(candidates, r)
	}
	if r := a.detectUncriticalAcceptance(session, traces); r != nil {
		candidates = append(candidates, r)
	}

	var created []*cognitive.Risk
	for _, r := range candidates {
		key := evidenceKey(r.Type, r.TraceIDs)
		if seen[key] {
			continue
		}
		if err := a.risks.SaveRisk(ctx, r); err != nil {
			return created, fmt.Errorf("saving risk: %w", err)
		}
		seen[key] = true
		created = append(created, r)
	}
	return created, nil
}

// evidenceKey is the dedup key: risk type plus the sorted evidence
// trace-id set.
func evidenceKey(riskType cognitive.RiskType, traceIDs []string) string {
	ids := append([]string(nil), traceIDs...)
	sort.Strings(ids)
	return string(riskType) + "|" + strings.Join(ids, ",")
}

// detectDelegationStreak finds runs of consecutive high-involvement traces
// of at least the configured length. Each maximal run yields one risk.
func (a *Analyst) detectDelegationStreak(session *cognitive.Session, traces []*cognitive.Trace) []*cognitive.Risk {
	var out []*cognitive.Risk
	var run []*cognitive.Trace

	// Evidence is the first StreakLength traces of the run, so the risk
	// stays identical while the run keeps growing and dedup holds.
	flush := func() {
		if len(run) >= a.policy.StreakLength {
			out = append(out, a.newRisk(session,
				cognitive.RiskCognitiveDelegation,
				cognitive.RiskHigh,
				cognitive.DimensionCognitive,
				fmt.Sprintf("%d interacciones consecutivas con involucramiento de la IA mayor a %.2f",
					a.policy.StreakLength, a.policy.HighInvolvement),
				run[:a.policy.StreakLength],
				[]string{
					"Proponer al estudiante que explique la solución con sus propias palabras",
					"Cambiar a preguntas socráticas antes de mostrar más código",
				},
			))
		}
		run = nil
	}

	for _, t := range traces {
		if !t.Blocked() && t.Involvement(a.policy.InvolvementFallback) > a.policy.HighInvolvement {
			run = append(run, t)
			continue
		}
		flush()
	}
	flush()
	return out
}

// detectRepeatedBlocked fires when the session accumulates enough blocked
// delegation attempts. Evidence is the first BlockedAttempts blocked
// traces, so later attempts do not spawn duplicate risks.
func (a *Analyst) detectRepeatedBlocked(session *cognitive.Session, traces []*cognitive.Trace) *cognitive.Risk {
	var blocked []*cognitive.Trace
	for _, t := range traces {
		if t.Blocked() {
			blocked = append(blocked, t)
		}
	}
	if len(blocked) < a.policy.BlockedAttempts {
		return nil
	}
	return a.newRisk(session,
		cognitive.RiskRepeatedDelegation,
		cognitive.RiskCritical,
		cognitive.DimensionEthical,
		fmt.Sprintf("%d o más intentos de delegación total bloqueados en la misma sesión",
			a.policy.BlockedAttempts),
		blocked[:a.policy.BlockedAttempts],
		[]string{
			"Revisar la actividad con el docente: el estudiante insiste en delegar el trabajo",
			"Considerar una intervención pedagógica directa",
		},
	)
}

// detectUncriticalAcceptance fires when the tail of the window is a long
// run of high-involvement traces with no validation or debugging activity:
// the student consumes AI output without ever questioning it. Evidence is
// the first AcceptanceWindow traces of that run, so a run that keeps
// growing maps to the same risk.
func (a *Analyst) detectUncriticalAcceptance(session *cognitive.Session, traces []*cognitive.Trace) *cognitive.Risk {
	accepts := func(t *cognitive.Trace) bool {
		return !t.Blocked() &&
			t.Involvement(a.policy.InvolvementFallback) > a.policy.HighInvolvement &&
			t.CognitiveState != cognitive.StateValidation &&
			t.CognitiveState != cognitive.StateDebugging
	}

	start := len(traces)
	for start > 0 && accepts(traces[start-1]) {
		start--
	}
	run := traces[start:]
	if len(run) < a.policy.AcceptanceWindow {
		return nil
	}
	return a.newRisk(session,
		cognitive.RiskUncriticalAcceptance,
		cognitive.RiskMedium,
		cognitive.DimensionTechnical,
		fmt.Sprintf("%d interacciones seguidas aceptando respuestas de la IA sin validarlas",
			a.policy.AcceptanceWindow),
		run[:a.policy.AcceptanceWindow],
		[]string{
			"Pedir al estudiante que escriba pruebas para el código recibido",
			"Introducir una pausa de verificación antes de continuar",
		},
	)
}

func (a *Analyst) newRisk(session *cognitive.Session, riskType cognitive.RiskType, level cognitive.RiskLevel,
	dimension cognitive.RiskDimension, description string, evidence []*cognitive.Trace, recommendations []string,
) *cognitive.Risk {
	ids := make([]string, len(evidence))
	quotes := make([]string, len(evidence))
	for i, t := range evidence {
		ids[i] = t.ID
		quotes[i] = t.Content
	}
	return &cognitive.Risk{
		ID:              uuid.NewString(),
		SessionID:       session.ID,
		StudentID:       session.StudentID,
		ActivityID:      session.ActivityID,
		Type:            riskType,
		Level:           level,
		Dimension:       dimension,
		Description:     description,
		Evidence:        quotes,
		TraceIDs:        ids,
		Recommendations: recommendations,
		CreatedAt:       time.Now().UTC(),
	}
}
