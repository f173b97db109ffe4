// Package cognitive defines the domain types for recorded tutoring
// interactions: sessions, leveled traces, detected risks, and competency
// evaluations.
package cognitive

import "time"

// AgentMode selects which behavioral agent handles a session's interactions.
type AgentMode string

const (
	ModeTutor        AgentMode = "TUTOR"
	ModeEvaluator    AgentMode = "EVALUATOR"
	ModeSimulator    AgentMode = "SIMULATOR"
	ModeGovernance   AgentMode = "GOVERNANCE"
	ModeTraceability AgentMode = "TRACEABILITY"
)

// ValidMode reports whether m is a known agent mode.
func ValidMode(m AgentMode) bool {
	switch m {
	case ModeTutor, ModeEvaluator, ModeSimulator, ModeGovernance, ModeTraceability:
		return true
	}
	return false
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAborted   SessionStatus = "aborted"
	StatusPaused    SessionStatus = "paused"
)

// ValidStatus reports whether s is a known session status.
func ValidStatus(s SessionStatus) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAborted, StatusPaused:
		return true
	}
	return false
}

// Session is one student/activity tutoring session. Traces, risks, and
// evaluations reference the session by ID; the session itself never holds
// a live collection of them.
type Session struct {
	ID         string        `json:"id"`
	StudentID  string        `json:"student_id"`
	ActivityID string        `json:"activity_id"`
	Mode       AgentMode     `json:"mode"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// Active reports whether the session accepts new interactions.
func (s *Session) Active() bool {
	return s.Status == StatusActive
}
