package cognitive

import "time"

// TraceLevel is the depth of cognitive signal captured by a trace.
// N1 is surface I/O; N4 carries inferred mental-state signals.
type TraceLevel string

const (
	LevelN1Superficial   TraceLevel = "N1_SUPERFICIAL"
	LevelN2Tecnico       TraceLevel = "N2_TECNICO"
	LevelN3Interaccional TraceLevel = "N3_INTERACCIONAL"
	LevelN4Cognitivo     TraceLevel = "N4_COGNITIVO"
)

// CognitiveState labels the inferred mental state behind a prompt.
// The classifier emits StateUnknown rather than failing when confidence
// is low.
type CognitiveState string

const (
	StateUnderstanding  CognitiveState = "UNDERSTANDING"
	StateExploration    CognitiveState = "EXPLORATION"
	StatePlanning       CognitiveState = "PLANNING"
	StateImplementation CognitiveState = "IMPLEMENTATION"
	StateDebugging      CognitiveState = "DEBUGGING"
	StateValidation     CognitiveState = "VALIDATION"
	StateReflection     CognitiveState = "REFLECTION"
	StateUnknown        CognitiveState = "UNKNOWN"
)

// InteractionType distinguishes how a trace was produced.
type InteractionType string

const (
	InteractionPrompt  InteractionType = "prompt"
	InteractionBlocked InteractionType = "blocked"
)

// Trace is one recorded interaction. Traces are immutable once created and
// strictly ordered by CreatedAt within a session; the ordered sequence is
// the canonical input for all derived analytics.
type Trace struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"session_id"`
	StudentID       string          `json:"student_id"`
	ActivityID      string          `json:"activity_id"`
	Level           TraceLevel      `json:"trace_level"`
	InteractionType InteractionType `json:"interaction_type"`
	CognitiveState  CognitiveState  `json:"cognitive_state"`
	CognitiveIntent string          `json:"cognitive_intent"`

	// AIInvolvement estimates how much of the turn's work was performed by
	// the AI, 0 fully student-driven, 1 fully AI-driven. Nil when the
	// classifier produced no estimate.
	AIInvolvement *float64 `json:"ai_involvement,omitempty"`

	Content  string         `json:"content"`
	Response string         `json:"response"`
	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Involvement returns the AI-involvement estimate, or fallback when the
// trace carries none.
func (t *Trace) Involvement(fallback float64) float64 {
	if t.AIInvolvement == nil {
		return fallback
	}
	return *t.AIInvolvement
}

// Blocked reports whether this trace records a governance block.
func (t *Trace) Blocked() bool {
	return t.InteractionType == InteractionBlocked
}
