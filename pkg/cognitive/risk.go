package cognitive

import "time"

// RiskType names the detected risk pattern.
type RiskType string

const (
	RiskCognitiveDelegation  RiskType = "COGNITIVE_DELEGATION"
	RiskUncriticalAcceptance RiskType = "UNCRITICAL_ACCEPTANCE"
	RiskRepeatedDelegation   RiskType = "REPEATED_DELEGATION"
)

// RiskLevel is the ordinal severity of a risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// riskLevelRank orders levels LOW < MEDIUM < HIGH < CRITICAL.
var riskLevelRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast reports whether l is at least as severe as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskLevelRank[l] >= riskLevelRank[other]
}

// RiskDimension classifies which aspect of the learning process is at risk.
type RiskDimension string

const (
	DimensionCognitive RiskDimension = "COGNITIVE"
	DimensionEthical   RiskDimension = "ETHICAL"
	DimensionTechnical RiskDimension = "TECHNICAL"
)

// Risk is an append-only artifact derived from one or more traces.
// Only an explicit resolve mutates it; risks are never silently deleted.
type Risk struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	StudentID  string `json:"student_id"`
	ActivityID string `json:"activity_id"`

	Type      RiskType      `json:"risk_type"`
	Level     RiskLevel     `json:"risk_level"`
	Dimension RiskDimension `json:"dimension"`

	Description     string   `json:"description"`
	Evidence        []string `json:"evidence"`
	TraceIDs        []string `json:"trace_ids"`
	Recommendations []string `json:"recommendations"`

	Resolved        bool   `json:"resolved"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
