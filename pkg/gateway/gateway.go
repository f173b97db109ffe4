// Package gateway orchestrates the interaction pipeline: classify the
// prompt, apply the governance gate, dispatch the session's agent, append
// the trace, and run risk analysis. It is the only writer of traces; the
// HTTP layer and CLI sit on top of it.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelieredu/traza/pkg/agent"
	"github.com/atelieredu/traza/pkg/classifier"
	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/eventstream"
	"github.com/atelieredu/traza/pkg/eventstream/nop"
	"github.com/atelieredu/traza/pkg/governance"
	"github.com/atelieredu/traza/pkg/logger"
	"github.com/atelieredu/traza/pkg/risk"
	"github.com/atelieredu/traza/pkg/storage"
)

// classifierWindow is how many recent prompts feed the classifier's
// involvement smoothing.
const classifierWindow = 5

// Options configures a Gateway. Store, Classifier, Gate, Agents, and
// Analyst are required; Events defaults to the nop publisher and Logger
// to a nop logger.
type Options struct {
	Store      storage.Store
	Classifier *classifier.Classifier
	Gate       *governance.Gate
	Agents     *agent.Registry
	Analyst    *risk.Analyst
	Evaluator  *agent.Evaluator
	Events     eventstream.Publisher
	Logger     *slog.Logger
}

// Gateway is the interaction pipeline. All trace writes for a session go
// through a per-session lock, so traces within a session are strictly
// ordered while sessions stay fully independent of each other.
type Gateway struct {
	store     storage.Store
	class     *classifier.Classifier
	gate      *governance.Gate
	agents    *agent.Registry
	analyst   *risk.Analyst
	evaluator *agent.Evaluator
	events    eventstream.Publisher
	log       *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Gateway from opts.
func New(opts Options) (*Gateway, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("gateway requires a store")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("gateway requires a classifier")
	}
	if opts.Gate == nil {
		return nil, fmt.Errorf("gateway requires a governance gate")
	}
	if opts.Agents == nil {
		return nil, fmt.Errorf("gateway requires an agent registry")
	}
	if opts.Analyst == nil {
		return nil, fmt.Errorf("gateway requires a risk analyst")
	}
	if opts.Events == nil {
		opts.Events = nop.NewPublisher()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Gateway{
		store:     opts.Store,
		class:     opts.Classifier,
		gate:      opts.Gate,
		agents:    opts.Agents,
		analyst:   opts.Analyst,
		evaluator: opts.Evaluator,
		events:    opts.Events,
		log:       opts.Logger,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// sessionLock returns the mutex serializing interactions for one session.
func (g *Gateway) sessionLock(sessionID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[sessionID] = l
	}
	return l
}

// CreateSession starts a new session for a student on an activity. New
// sessions begin in TUTOR mode and active status.
func (g *Gateway) CreateSession(ctx context.Context, studentID, activityID string) (*cognitive.Session, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(activityID) == "" {
		return nil, ValidationError{Field: "activity_id", Reason: "must not be empty"}
	}

	session := &cognitive.Session{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		ActivityID: activityID,
		Mode:       cognitive.ModeTutor,
		Status:     cognitive.StatusActive,
		StartedAt:  time.Now().UTC(),
	}
	if err := g.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	g.log.Info("session created",
		"session_id", session.ID,
		"student_id", session.StudentID,
		"activity_id", session.ActivityID,
	)
	return session, nil
}

// GetSession fetches a session by id.
func (g *Gateway) GetSession(ctx context.Context, sessionID string) (*cognitive.Session, error) {
	session, err := g.store.GetSession(ctx, sessionID)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, SessionNotFoundError{ID: sessionID}
		}
		return nil, err
	}
	return session, nil
}

// SessionsByStudent lists all sessions for a student.
func (g *Gateway) SessionsByStudent(ctx context.Context, studentID string) ([]*cognitive.Session, error) {
	return g.store.GetSessionsByStudent(ctx, studentID)
}

// SetMode switches the session's agent mode. The switch applies to
// subsequent interactions; recorded traces are never rewritten.
func (g *Gateway) SetMode(ctx context.Context, sessionID string, mode cognitive.AgentMode) (*cognitive.Session, error) {
	if !cognitive.ValidMode(mode) {
		return nil, ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}

	lock := g.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Mode = mode
	if err := g.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	g.log.Info("session mode changed", "session_id", sessionID, "mode", mode)
	return session, nil
}

// SetStatus moves the session to a new lifecycle status. Completing a
// session stamps EndedAt and, when an evaluator is configured, records a
// competency evaluation over the full trace sequence.
func (g *Gateway) SetStatus(ctx context.Context, sessionID string, status cognitive.SessionStatus) (*cognitive.Session, error) {
	if !cognitive.ValidStatus(status) {
		return nil, ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	lock := g.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.Status = status
	if status == cognitive.StatusCompleted && session.EndedAt == nil {
		now := time.Now().UTC()
		session.EndedAt = &now
	}
	if err := g.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	g.log.Info("session status changed", "session_id", sessionID, "status", status)

	if status == cognitive.StatusCompleted && g.evaluator != nil {
		if err := g.evaluateSession(ctx, session); err != nil {
			g.log.Warn("failed to record session evaluation",
				"session_id", sessionID,
				"error", err,
			)
		}
	}
	return session, nil
}

func (g *Gateway) evaluateSession(ctx context.Context, session *cognitive.Session) error {
	seq, err := g.sequence(ctx, session)
	if err != nil {
		return err
	}
	eval := g.evaluator.Evaluate(session, seq)
	return g.store.SaveEvaluation(ctx, eval)
}

// InteractionResult is what the student-facing surface returns for one
// processed prompt.
type InteractionResult struct {
	TraceID string `json:"trace_id"`

	Blocked     bool   `json:"blocked"`
	BlockReason string `json:"block_reason,omitempty"`

	// Message is the agent's response, or the block explanation when the
	// governance gate refused the prompt.
	Message string `json:"message"`

	AgentUsed       cognitive.AgentMode      `json:"agent_used,omitempty"`
	CognitiveState  cognitive.CognitiveState `json:"cognitive_state"`
	CognitiveIntent string                   `json:"cognitive_intent,omitempty"`
	AIInvolvement   float64                  `json:"ai_involvement"`
}

// ProcessInteraction runs one student prompt through the full pipeline.
// Calls for the same session are serialized; a blocked prompt still
// records a trace, while a provider failure records nothing.
func (g *Gateway) ProcessInteraction(ctx context.Context, sessionID, prompt, intentHint string) (*InteractionResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ValidationError{Field: "prompt", Reason: "must not be empty"}
	}

	lock := g.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, InactiveSessionError{ID: sessionID, Status: session.Status}
	}

	traces, err := g.store.GetTracesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session traces: %w", err)
	}

	result := g.class.Classify(prompt, promptHistory(traces), intentHint)
	decision := g.gate.Evaluate(prompt, result.Intent, session.Mode)

	if decision.Blocked {
		trace := g.newTrace(session, cognitive.InteractionBlocked, result, prompt, decision.Reason)
		trace.Metadata = map[string]any{"rule_id": decision.RuleID}
		if err := g.store.SaveTrace(ctx, trace); err != nil {
			return nil, fmt.Errorf("failed to save trace: %w", err)
		}
		g.publishTrace(ctx, trace)
		g.analyzeRisks(ctx, session, append(traces, trace))

		g.log.Info("interaction blocked",
			"session_id", sessionID,
			"rule_id", decision.RuleID,
		)
		return &InteractionResult{
			TraceID:         trace.ID,
			Blocked:         true,
			BlockReason:     decision.Reason,
			Message:         decision.Reason,
			CognitiveState:  result.State,
			CognitiveIntent: result.Intent,
			AIInvolvement:   result.Involvement,
		}, nil
	}

	ag, ok := g.agents.Get(session.Mode)
	if !ok {
		return nil, fmt.Errorf("no agent registered for mode %s", session.Mode)
	}
	reply, err := ag.Respond(ctx, agent.Request{
		Prompt:       prompt,
		Session:      session,
		RecentTraces: traces,
	})
	if err != nil {
		// No synthetic trace for a failed turn: the student retries and
		// the sequence stays truthful.
		return nil, err
	}

	trace := g.newTrace(session, cognitive.InteractionPrompt, result, prompt, reply)
	if err := g.store.SaveTrace(ctx, trace); err != nil {
		return nil, fmt.Errorf("failed to save trace: %w", err)
	}
	g.publishTrace(ctx, trace)
	g.analyzeRisks(ctx, session, append(traces, trace))

	return &InteractionResult{
		TraceID:         trace.ID,
		Message:         reply,
		AgentUsed:       session.Mode,
		CognitiveState:  result.State,
		CognitiveIntent: result.Intent,
		AIInvolvement:   result.Involvement,
	}, nil
}

func (g *Gateway) newTrace(session *cognitive.Session, kind cognitive.InteractionType,
	result classifier.Result, content, response string,
) *cognitive.Trace {
	involvement := result.Involvement
	return &cognitive.Trace{
		ID:              uuid.NewString(),
		SessionID:       session.ID,
		StudentID:       session.StudentID,
		ActivityID:      session.ActivityID,
		Level:           cognitive.LevelN4Cognitivo,
		InteractionType: kind,
		CognitiveState:  result.State,
		CognitiveIntent: result.Intent,
		AIInvolvement:   &involvement,
		Content:         content,
		Response:        response,
		CreatedAt:       time.Now().UTC(),
	}
}

// promptHistory extracts the classifier's smoothing window from recorded
// traces: the most recent prompt contents, oldest first.
func promptHistory(traces []*cognitive.Trace) []string {
	start := len(traces) - classifierWindow
	if start < 0 {
		start = 0
	}
	history := make([]string, 0, classifierWindow)
	for _, t := range traces[start:] {
		history = append(history, t.Content)
	}
	return history
}

func (g *Gateway) publishTrace(ctx context.Context, trace *cognitive.Trace) {
	event := &eventstream.TraceRecordedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTraceRecorded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Trace:         *trace,
	}
	if err := g.events.PublishTrace(ctx, event); err != nil {
		g.log.Warn("failed to publish trace event", "trace_id", trace.ID, "error", err)
	}
}

// analyzeRisks runs the analyst over the session's traces and publishes
// any newly detected risks. Risk detection is derived state; a failure
// here never fails the student's interaction.
func (g *Gateway) analyzeRisks(ctx context.Context, session *cognitive.Session, traces []*cognitive.Trace) {
	risks, err := g.analyst.Analyze(ctx, session, traces)
	if err != nil {
		g.log.Warn("risk analysis failed", "session_id", session.ID, "error", err)
		return
	}
	for _, r := range risks {
		event := &eventstream.RiskDetectedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeRiskDetected,
			EventID:       uuid.NewString(),
			EmittedAt:     time.Now().UTC(),
			Risk:          *r,
		}
		if err := g.events.PublishRisk(ctx, event); err != nil {
			g.log.Warn("failed to publish risk event", "risk_id", r.ID, "error", err)
		}
		g.log.Info("risk detected",
			"session_id", session.ID,
			"risk_type", r.Type,
			"risk_level", r.Level,
		)
	}
}

// ListTraces returns a filtered, paginated page of the session's traces
// in sequence order.
func (g *Gateway) ListTraces(ctx context.Context, sessionID string, query storage.TraceQuery) ([]*cognitive.Trace, error) {
	if _, err := g.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	traces, err := g.store.GetTracesBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*cognitive.Trace, 0, len(traces))
	for _, t := range traces {
		if query.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	if query.Offset > 0 {
		if query.Offset >= len(filtered) {
			return []*cognitive.Trace{}, nil
		}
		filtered = filtered[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(filtered) {
		filtered = filtered[:query.Limit]
	}
	return filtered, nil
}

// SequenceReport is the full analytical view of one session's trace
// sequence.
type SequenceReport struct {
	SessionID            string                     `json:"session_id"`
	StudentID            string                     `json:"student_id"`
	ActivityID           string                     `json:"activity_id"`
	Traces               []cognitive.Trace          `json:"traces"`
	CognitivePath        []cognitive.CognitiveState `json:"cognitive_path"`
	InvolvementEvolution []float64                  `json:"involvement_evolution"`
	AIDependencyScore    float64                    `json:"ai_dependency_score"`
	StrategyChanges      []cognitive.StrategyChange `json:"strategy_changes"`
}

// GetTraceSequence builds the ordered trace sequence for a session along
// with its derived analytics.
func (g *Gateway) GetTraceSequence(ctx context.Context, sessionID string) (*SequenceReport, error) {
	session, err := g.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	seq, err := g.sequence(ctx, session)
	if err != nil {
		return nil, err
	}
	return &SequenceReport{
		SessionID:            seq.SessionID,
		StudentID:            seq.StudentID,
		ActivityID:           seq.ActivityID,
		Traces:               seq.Traces,
		CognitivePath:        seq.CognitivePath(),
		InvolvementEvolution: seq.InvolvementEvolution(),
		AIDependencyScore:    seq.AIDependencyScore(),
		StrategyChanges:      seq.StrategyChanges(cognitive.DefaultStrategyChangeThreshold),
	}, nil
}

func (g *Gateway) sequence(ctx context.Context, session *cognitive.Session) (*cognitive.TraceSequence, error) {
	traces, err := g.store.GetTracesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session traces: %w", err)
	}
	values := make([]cognitive.Trace, len(traces))
	for i, t := range traces {
		values[i] = *t
	}
	return cognitive.NewTraceSequence(session.ID, session.StudentID, session.ActivityID, values), nil
}

// RiskReport bundles a session's detected risks with aggregate counts.
type RiskReport struct {
	SessionID string            `json:"session_id"`
	Risks     []*cognitive.Risk `json:"risks"`
	Stats     risk.Stats        `json:"stats"`
}

// GetRiskReport returns the session's risks plus aggregate statistics.
func (g *Gateway) GetRiskReport(ctx context.Context, sessionID string) (*RiskReport, error) {
	if _, err := g.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	risks, err := g.store.GetRisksBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &RiskReport{
		SessionID: sessionID,
		Risks:     risks,
		Stats:     risk.Aggregate(risks),
	}, nil
}

// RisksByStudent lists risks across all of a student's sessions.
func (g *Gateway) RisksByStudent(ctx context.Context, studentID string) ([]*cognitive.Risk, error) {
	return g.store.GetRisksByStudent(ctx, studentID)
}

// ResolveRisk marks a risk as reviewed by an educator.
func (g *Gateway) ResolveRisk(ctx context.Context, riskID, notes string) (*cognitive.Risk, error) {
	return g.store.ResolveRisk(ctx, riskID, notes)
}

// EvaluationsBySession returns a session's recorded evaluations, most
// recent last.
func (g *Gateway) EvaluationsBySession(ctx context.Context, sessionID string) ([]*cognitive.Evaluation, error) {
	if _, err := g.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return g.store.GetEvaluationsBySession(ctx, sessionID)
}

// EvaluationsByStudent returns all evaluations recorded for a student.
func (g *Gateway) EvaluationsByStudent(ctx context.Context, studentID string) ([]*cognitive.Evaluation, error) {
	return g.store.GetEvaluationsByStudent(ctx, studentID)
}
