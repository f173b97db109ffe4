package risk

import "github.com/atelieredu/traza/pkg/cognitive"

// Stats aggregates a risk collection. Recomputed on read, single pass.
type Stats struct {
	Total          int            `json:"total"`
	ByLevel        map[string]int `json:"by_level"`
	ByDimension    map[string]int `json:"by_dimension"`
	ByType         map[string]int `json:"by_type"`
	Resolved       int            `json:"resolved"`
	ResolutionRate float64        `json:"resolution_rate"`
}

// Aggregate computes stats over risks in one O(n) pass. ResolutionRate is
// 0 for an empty collection.
func Aggregate(risks []*cognitive.Risk) Stats {
	stats := Stats{
		ByLevel:     make(map[string]int),
		ByDimension: make(map[string]int),
		ByType:      make(map[string]int),
	}
	for _, r := range risks {
		stats.Total++
		stats.ByLevel[string(r.Level)]++
		stats.ByDimension[string(r.Dimension)]++
		stats.ByType[string(r.Type)]++
		if r.Resolved {
			stats.Resolved++
		}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved) / float64(stats.Total)
	}
	return stats
}
