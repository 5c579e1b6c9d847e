// internal/matching/ranking/entry.go
package ranking

import (
	"math"

	"event-matchmaker/internal/models"
)

// FallbackExplanation is used for every entry when the provider output cannot be used.
const FallbackExplanation = "Match based on profile similarity."

// Entry is one ranked candidate. CandidateIndex is zero-based into the candidate
// list passed to Rank and may be out of range when the provider invents one.
type Entry struct {
	CandidateIndex     int
	OverallScore       float64
	ComplementaryScore float64
	MatchType          models.MatchType
	Explanation        string
	SharedContext      models.SharedContext
	Confidence         *float64
	// Fallback marks entries built from similarity alone.
	Fallback bool
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
