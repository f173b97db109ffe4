// Package inmemory provides a map-backed implementation of the storage
// interfaces. It is the default for tests and single-process deployments.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/storage"
)

// Store implements storage.Store using in-memory maps.
type Store struct {
	// mu guards all maps below. Appends also bump seq so reads can break
	// creation-timestamp ties by insertion order.
	mu  sync.RWMutex
	seq uint64

	sessions    map[string]*cognitive.Session
	traces      map[string]*cognitive.Trace
	traceOrder  map[string]uint64
	risks       map[string]*cognitive.Risk
	evaluations map[string]*cognitive.Evaluation
	evalOrder   map[string]uint64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]*cognitive.Session),
		traces:      make(map[string]*cognitive.Trace),
		traceOrder:  make(map[string]uint64),
		risks:       make(map[string]*cognitive.Risk),
		evaluations: make(map[string]*cognitive.Evaluation),
		evalOrder:   make(map[string]uint64),
	}
}

// SaveSession inserts or replaces a session.
func (s *Store) SaveSession(_ context.Context, session *cognitive.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("cannot store session without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(_ context.Context, id string) (*cognitive.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "session", ID: id}
	}

	copied := *session
	return &copied, nil
}

// GetSessionsByStudent returns all sessions for a student, oldest first.
func (s *Store) GetSessionsByStudent(_ context.Context, studentID string) ([]*cognitive.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*cognitive.Session
	for _, session := range s.sessions {
		if session.StudentID == studentID {
			copied := *session
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// ListSessions returns every stored session, oldest first.
func (s *Store) ListSessions(_ context.Context) ([]*cognitive.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*cognitive.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := *session
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// SaveTrace appends a trace. Traces are immutable; re-saving an existing
// id is rejected.
func (s *Store) SaveTrace(_ context.Context, trace *cognitive.Trace) error {
	if trace == nil || trace.ID == "" {
		return errors.New("cannot store trace without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.traces[trace.ID]; ok {
		return errors.New("trace already exists: " + trace.ID)
	}

	copied := *trace
	s.seq++
	s.traces[trace.ID] = &copied
	s.traceOrder[trace.ID] = s.seq
	return nil
}

// GetTrace retrieves a trace by id.
func (s *Store) GetTrace(_ context.Context, id string) (*cognitive.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trace, ok := s.traces[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "trace", ID: id}
	}

	copied := *trace
	return &copied, nil
}

// GetTracesBySession returns the session's traces ordered by creation
// time, insertion order breaking ties.
func (s *Store) GetTracesBySession(_ context.Context, sessionID string) ([]*cognitive.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectTraces(func(t *cognitive.Trace) bool {
		return t.SessionID == sessionID
	}), nil
}

// GetTracesByStudent returns all of a student's traces across sessions,
// ordered by creation time.
func (s *Store) GetTracesByStudent(_ context.Context, studentID string) ([]*cognitive.Trace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectTraces(func(t *cognitive.Trace) bool {
		return t.StudentID == studentID
	}), nil
}

// collectTraces copies matching traces in chronological order.
// Callers must hold at least the read lock.
func (s *Store) collectTraces(match func(*cognitive.Trace) bool) []*cognitive.Trace {
	var out []*cognitive.Trace
	for _, trace := range s.traces {
		if match(trace) {
			copied := *trace
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.traceOrder[out[i].ID] < s.traceOrder[out[j].ID]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SaveRisk appends a risk record.
func (s *Store) SaveRisk(_ context.Context, risk *cognitive.Risk) error {
	if risk == nil || risk.ID == "" {
		return errors.New("cannot store risk without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *risk
	s.risks[risk.ID] = &copied
	return nil
}

// GetRisk retrieves a risk by id.
func (s *Store) GetRisk(_ context.Context, id string) (*cognitive.Risk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	risk, ok := s.risks[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "risk", ID: id}
	}

	copied := *risk
	return &copied, nil
}

// GetRisksBySession returns the session's risks ordered by creation time.
func (s *Store) GetRisksBySession(_ context.Context, sessionID string) ([]*cognitive.Risk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectRisks(func(r *cognitive.Risk) bool {
		return r.SessionID == sessionID
	}), nil
}

// GetRisksByStudent returns all risks for a student.
func (s *Store) GetRisksByStudent(_ context.Context, studentID string) ([]*cognitive.Risk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectRisks(func(r *cognitive.Risk) bool {
		return r.StudentID == studentID
	}), nil
}

func (s *Store) collectRisks(match func(*cognitive.Risk) bool) []*cognitive.Risk {
	var out []*cognitive.Risk
	for _, risk := range s.risks {
		if match(risk) {
			copied := *risk
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ResolveRisk marks a risk resolved with the given notes. Resolution is
// the only permitted mutation of a risk record.
func (s *Store) ResolveRisk(_ context.Context, id, notes string) (*cognitive.Risk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	risk, ok := s.risks[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "risk", ID: id}
	}

	risk.Resolved = true
	risk.ResolutionNotes = notes

	copied := *risk
	return &copied, nil
}

// SaveEvaluation appends an evaluation record.
func (s *Store) SaveEvaluation(_ context.Context, eval *cognitive.Evaluation) error {
	if eval == nil || eval.ID == "" {
		return errors.New("cannot store evaluation without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *eval
	s.seq++
	s.evaluations[eval.ID] = &copied
	s.evalOrder[eval.ID] = s.seq
	return nil
}

// GetEvaluationsBySession returns the session's evaluations oldest first;
// readers take the last element as the superseding record.
func (s *Store) GetEvaluationsBySession(_ context.Context, sessionID string) ([]*cognitive.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectEvaluations(func(e *cognitive.Evaluation) bool {
		return e.SessionID == sessionID
	}), nil
}

// GetEvaluationsByStudent returns all evaluations for a student.
func (s *Store) GetEvaluationsByStudent(_ context.Context, studentID string) ([]*cognitive.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectEvaluations(func(e *cognitive.Evaluation) bool {
		return e.StudentID == studentID
	}), nil
}

func (s *Store) collectEvaluations(match func(*cognitive.Evaluation) bool) []*cognitive.Evaluation {
	var out []*cognitive.Evaluation
	for _, eval := range s.evaluations {
		if match(eval) {
			copied := *eval
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.evalOrder[out[i].ID] < s.evalOrder[out[j].ID]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close releases no resources for the in-memory store.
func (s *Store) Close() error {
	return nil
}
