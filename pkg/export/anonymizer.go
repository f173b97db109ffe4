// Package export produces anonymized research datasets from recorded
// sessions. Identifiers are pseudonymized with a keyed hash, free text is
// suppressed, timestamps are generalized to ISO weeks, and the whole
// dataset is validated for k-anonymity before anything leaves the store.
package export

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// pseudonymLength is how many hex characters of the keyed hash survive
// into the exported reference. Long enough to avoid collisions at
// institutional scale, short enough to be obviously not the original id.
const pseudonymLength = 16

// Anonymizer rewrites records into their exportable, de-identified form.
// The same secret always produces the same pseudonyms, so longitudinal
// studies can follow a pseudonymous student across exports.
type Anonymizer struct {
	secret []byte
}

// NewAnonymizer creates an anonymizer keyed with secret.
func NewAnonymizer(secret []byte) *Anonymizer {
	return &Anonymizer{secret: secret}
}

// Pseudonym derives the irreversible export reference for an identifier.
func (a *Anonymizer) Pseudonym(value string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))[:pseudonymLength]
}

// week generalizes a timestamp to its ISO week, e.g. "2026-W35".
func week(t time.Time) string {
	year, w := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, w)
}

// SessionRecord is an anonymized session.
type SessionRecord struct {
	SessionRef string `json:"session_ref"`
	StudentRef string `json:"student_ref"`
	ActivityID string `json:"activity_id"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Week       string `json:"week"`
}

// TraceRecord is an anonymized trace. Prompt and response text never
// leave the store; only their lengths survive, as a rough effort signal.
type TraceRecord struct {
	TraceRef        string   `json:"trace_ref"`
	SessionRef      string   `json:"session_ref"`
	StudentRef      string   `json:"student_ref"`
	ActivityID      string   `json:"activity_id"`
	Level           string   `json:"trace_level"`
	InteractionType string   `json:"interaction_type"`
	CognitiveState  string   `json:"cognitive_state"`
	CognitiveIntent string   `json:"cognitive_intent,omitempty"`
	AIInvolvement   *float64 `json:"ai_involvement,omitempty"`
	ContentLength   int      `json:"content_length"`
	ResponseLength  int      `json:"response_length"`
	Week            string   `json:"week"`
}

// RiskRecord is an anonymized risk. Description, evidence, and
// recommendations quote student prompts and are suppressed entirely.
type RiskRecord struct {
	RiskRef    string `json:"risk_ref"`
	SessionRef string `json:"session_ref"`
	StudentRef string `json:"student_ref"`
	ActivityID string `json:"activity_id"`
	RiskType   string `json:"risk_type"`
	RiskLevel  string `json:"risk_level"`
	Dimension  string `json:"dimension"`
	Resolved   bool   `json:"resolved"`
	Week       string `json:"week"`
}

// EvaluationRecord is an anonymized competency evaluation.
type EvaluationRecord struct {
	EvaluationRef string             `json:"evaluation_ref"`
	SessionRef    string             `json:"session_ref"`
	StudentRef    string             `json:"student_ref"`
	ActivityID    string             `json:"activity_id"`
	Competency    string             `json:"overall_competency_level"`
	Score         float64            `json:"overall_score"`
	Dimensions    map[string]float64 `json:"dimensions,omitempty"`
	Week          string             `json:"week"`
}

// AnonymizeSession rewrites a session into its export form.
func (a *Anonymizer) AnonymizeSession(s *cognitive.Session) SessionRecord {
	return SessionRecord{
		SessionRef: a.Pseudonym(s.ID),
		StudentRef: a.Pseudonym(s.StudentID),
		ActivityID: s.ActivityID,
		Mode:       string(s.Mode),
		Status:     string(s.Status),
		Week:       week(s.StartedAt),
	}
}

// AnonymizeTrace rewrites a trace into its export form.
func (a *Anonymizer) AnonymizeTrace(t *cognitive.Trace) TraceRecord {
	record := TraceRecord{
		TraceRef:        a.Pseudonym(t.ID),
		SessionRef:      a.Pseudonym(t.SessionID),
		StudentRef:      a.Pseudonym(t.StudentID),
		ActivityID:      t.ActivityID,
		Level:           string(t.Level),
		InteractionType: string(t.InteractionType),
		CognitiveState:  string(t.CognitiveState),
		CognitiveIntent: t.CognitiveIntent,
		ContentLength:   len(t.Content),
		ResponseLength:  len(t.Response),
		Week:            week(t.CreatedAt),
	}
	if t.AIInvolvement != nil {
		inv := *t.AIInvolvement
		record.AIInvolvement = &inv
	}
	return record
}

// AnonymizeRisk rewrites a risk into its export form.
func (a *Anonymizer) AnonymizeRisk(r *cognitive.Risk) RiskRecord {
	return RiskRecord{
		RiskRef:    a.Pseudonym(r.ID),
		SessionRef: a.Pseudonym(r.SessionID),
		StudentRef: a.Pseudonym(r.StudentID),
		ActivityID: r.ActivityID,
		RiskType:   string(r.Type),
		RiskLevel:  string(r.Level),
		Dimension:  string(r.Dimension),
		Resolved:   r.Resolved,
		Week:       week(r.CreatedAt),
	}
}

// AnonymizeEvaluation rewrites an evaluation into its export form. Free
// text fields (strengths, improvement areas, reasoning) are suppressed.
func (a *Anonymizer) AnonymizeEvaluation(e *cognitive.Evaluation) EvaluationRecord {
	dims := make(map[string]float64, len(e.Dimensions))
	for k, v := range e.Dimensions {
		dims[k] = v
	}
	return EvaluationRecord{
		EvaluationRef: a.Pseudonym(e.ID),
		SessionRef:    a.Pseudonym(e.SessionID),
		StudentRef:    a.Pseudonym(e.StudentID),
		ActivityID:    e.ActivityID,
		Competency:    string(e.OverallCompetency),
		Score:         e.OverallScore,
		Dimensions:    dims,
		Week:          week(e.CreatedAt),
	}
}
