package cognitive

import "sort"

// DefaultInvolvementFallback is the involvement contribution of a trace
// that has no classifier estimate.
const DefaultInvolvementFallback = 0.5

// DefaultStrategyChangeThreshold is the minimum jump between consecutive
// involvement values to flag a strategy change. Illustrative rather than a
// validated pedagogical constant; callers may override it.
const DefaultStrategyChangeThreshold = 0.3

// StrategyChange marks a significant jump in AI involvement between two
// consecutive traces.
type StrategyChange struct {
	FromIndex int     `json:"from_index"`
	ToIndex   int     `json:"to_index"`
	Delta     float64 `json:"delta"`
}

// TraceSequence is the ordered view of a session's traces plus the derived
// analytics the reporting layer reads.
type TraceSequence struct {
	SessionID  string  `json:"session_id"`
	StudentID  string  `json:"student_id"`
	ActivityID string  `json:"activity_id"`
	Traces     []Trace `json:"traces"`
}

// NewTraceSequence builds a sequence over the given traces, sorted stably
// by creation timestamp (insertion order breaks ties).
func NewTraceSequence(sessionID, studentID, activityID string, traces []Trace) *TraceSequence {
	sorted := make([]Trace, len(traces))
	copy(sorted, traces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return &TraceSequence{
		SessionID:  sessionID,
		StudentID:  studentID,
		ActivityID: activityID,
		Traces:     sorted,
	}
}

// CognitivePath returns the ordered cognitive-state labels across the
// sequence, the student's reasoning trajectory.
func (s *TraceSequence) CognitivePath() []CognitiveState {
	path := make([]CognitiveState, 0, len(s.Traces))
	for _, t := range s.Traces {
		path = append(path, t.CognitiveState)
	}
	return path
}

// InvolvementEvolution returns the per-trace AI-involvement values, with
// DefaultInvolvementFallback substituted where a trace has no estimate.
func (s *TraceSequence) InvolvementEvolution() []float64 {
	evo := make([]float64, 0, len(s.Traces))
	for _, t := range s.Traces {
		evo = append(evo, t.Involvement(DefaultInvolvementFallback))
	}
	return evo
}

// AIDependencyScore is the mean AI involvement across the sequence,
// always in [0,1]. Returns 0 for an empty sequence.
func (s *TraceSequence) AIDependencyScore() float64 {
	if len(s.Traces) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.InvolvementEvolution() {
		sum += v
	}
	return sum / float64(len(s.Traces))
}

// StrategyChanges flags index pairs where consecutive involvement values
// differ by more than threshold. A non-positive threshold falls back to
// DefaultStrategyChangeThreshold.
func (s *TraceSequence) StrategyChanges(threshold float64) []StrategyChange {
	if threshold <= 0 {
		threshold = DefaultStrategyChangeThreshold
	}
	evo := s.InvolvementEvolution()
	var changes []StrategyChange
	for i := 1; i < len(evo); i++ {
		delta := evo[i] - evo[i-1]
		if delta < 0 {
			delta = -delta
		}
		if delta > threshold {
			changes = append(changes, StrategyChange{
				FromIndex: i - 1,
				ToIndex:   i,
				Delta:     delta,
			})
		}
	}
	return changes
}
