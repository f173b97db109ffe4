// Package storage defines the persistence interfaces for sessions, traces,
// risks, and evaluations. The gateway treats implementations as a reliable
// ordered append log keyed by session; the storage engine itself is an
// implementation detail of each driver package.
package storage

import (
	"context"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// SessionStore persists sessions. Save is an upsert: the gateway uses it
// both for creation and for mode/status mutation.
type SessionStore interface {
	SaveSession(ctx context.Context, session *cognitive.Session) error
	GetSession(ctx context.Context, id string) (*cognitive.Session, error)
	GetSessionsByStudent(ctx context.Context, studentID string) ([]*cognitive.Session, error)
	ListSessions(ctx context.Context) ([]*cognitive.Session, error)
}

// TraceStore persists traces. Traces are append-only; there is no update
// or delete. GetTracesBySession returns traces ordered by creation time,
// insertion order breaking ties.
type TraceStore interface {
	SaveTrace(ctx context.Context, trace *cognitive.Trace) error
	GetTrace(ctx context.Context, id string) (*cognitive.Trace, error)
	GetTracesBySession(ctx context.Context, sessionID string) ([]*cognitive.Trace, error)
	GetTracesByStudent(ctx context.Context, studentID string) ([]*cognitive.Trace, error)
}

// TraceQuery filters trace listings for the reporting surface.
type TraceQuery struct {
	Level           cognitive.TraceLevel
	InteractionType cognitive.InteractionType
	CognitiveState  cognitive.CognitiveState
	Limit           int
	Offset          int
}

// Matches reports whether the trace passes the query's filters
// (pagination excluded).
func (q TraceQuery) Matches(t *cognitive.Trace) bool {
	if q.Level != "" && t.Level != q.Level {
		return false
	}
	if q.InteractionType != "" && t.InteractionType != q.InteractionType {
		return false
	}
	if q.CognitiveState != "" && t.CognitiveState != q.CognitiveState {
		return false
	}
	return true
}

// RiskStore persists risks. Risks are append-only except for resolution.
type RiskStore interface {
	SaveRisk(ctx context.Context, risk *cognitive.Risk) error
	GetRisk(ctx context.Context, id string) (*cognitive.Risk, error)
	GetRisksBySession(ctx context.Context, sessionID string) ([]*cognitive.Risk, error)
	GetRisksByStudent(ctx context.Context, studentID string) ([]*cognitive.Risk, error)
	ResolveRisk(ctx context.Context, id, notes string) (*cognitive.Risk, error)
}

// EvaluationStore persists evaluations. Append-only; readers take the most
// recent record per session by creation time.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, eval *cognitive.Evaluation) error
	GetEvaluationsBySession(ctx context.Context, sessionID string) ([]*cognitive.Evaluation, error)
	GetEvaluationsByStudent(ctx context.Context, studentID string) ([]*cognitive.Evaluation, error)
}

// Store bundles the four repositories behind one handle plus lifecycle.
type Store interface {
	SessionStore
	TraceStore
	RiskStore
	EvaluationStore
	Close() error
}
