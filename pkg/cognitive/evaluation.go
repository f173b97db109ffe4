package cognitive

import "time"

// CompetencyLevel is the ordinal overall competency of a student in a
// completed session.
type CompetencyLevel string

const (
	CompetencyInicial    CompetencyLevel = "INICIAL"
	CompetencyIntermedio CompetencyLevel = "INTERMEDIO"
	CompetencyAvanzado   CompetencyLevel = "AVANZADO"
	CompetencyExperto    CompetencyLevel = "EXPERTO"
)

// Evaluation is the evaluator agent's summary of a completed session.
// Evaluations are append-only; a newer record supersedes an older one and
// readers take the most recent by CreatedAt.
type Evaluation struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	StudentID  string `json:"student_id"`
	ActivityID string `json:"activity_id"`

	OverallCompetency CompetencyLevel    `json:"overall_competency_level"`
	OverallScore      float64            `json:"overall_score"`
	Dimensions        map[string]float64 `json:"dimensions"`

	KeyStrengths     []string `json:"key_strengths"`
	ImprovementAreas []string `json:"improvement_areas"`

	Reasoning     string `json:"reasoning_analysis"`
	CodeEvolution string `json:"code_evolution,omitempty"`

	AIDependencyMetrics map[string]float64 `json:"ai_dependency_metrics"`

	CreatedAt time.Time `json:"created_at"`
}

// CompetencyForScore maps an overall score in [0,1] onto the ordinal
// competency scale.
func CompetencyForScore(score float64) CompetencyLevel {
	switch {
	case score >= 0.85:
		return CompetencyExperto
	case score >= 0.65:
		return CompetencyAvanzado
	case score >= 0.4:
		return CompetencyIntermedio
	default:
		return CompetencyInicial
	}
}
