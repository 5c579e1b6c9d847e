// internal/matching/engine/policy.go
package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/matching/ranking"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"github.com/google/uuid"
)

// DefaultMinOverallScore is the persistence threshold for ranked entries.
const DefaultMinOverallScore = 0.60

const (
	dropOutOfRange = "out_of_range"
	dropThreshold  = "below_threshold"
	dropDuplicate  = "duplicate"
)

// Policy turns ranked entries into persisted matches.
type Policy struct {
	MinOverallScore float64
	Now             func() time.Time
}

// Persist writes one match per accepted entry through s and returns them in entry order.
// Out-of-range entries are dropped, entries under the threshold are dropped, and a pair
// that already has a match in either ordering is skipped, whether it is seen by the lookup
// or only by the store's pair constraint at insert time.
func (p Policy) Persist(ctx context.Context, s store.Store, attendee *models.Profile,
	candidates []retrieval.Candidate, entries []ranking.Entry) ([]*models.Match, error) {
	var created []*models.Match
	for _, e := range entries {
		if e.CandidateIndex < 0 || e.CandidateIndex >= len(candidates) {
			metrics.MatchEntriesDropped.WithLabelValues(dropOutOfRange).Inc()
			continue
		}
		candidate := candidates[e.CandidateIndex]

		overall := orSimilarity(e.OverallScore, candidate.Similarity)
		if overall < p.minScore() {
			metrics.MatchEntriesDropped.WithLabelValues(dropThreshold).Inc()
			continue
		}

		existing, err := s.FindMatchBetween(ctx, attendee.ID, candidate.Profile.ID)
		if err != nil {
			return created, err
		}
		if existing != nil {
			metrics.MatchEntriesDropped.WithLabelValues(dropDuplicate).Inc()
			continue
		}

		m := &models.Match{
			ID:                 uuid.New().String(),
			AttendeeAID:        attendee.ID,
			AttendeeBID:        candidate.Profile.ID,
			SimilarityScore:    candidate.Similarity,
			ComplementaryScore: orSimilarity(e.ComplementaryScore, candidate.Similarity),
			OverallScore:       overall,
			MatchType:          e.MatchType,
			Explanation:        e.Explanation,
			SharedContext:      e.SharedContext,
			Confidence:         e.Confidence,
			Status:             models.StatusPending,
			StatusA:            models.StatusPending,
			StatusB:            models.StatusPending,
			CreatedAt:          p.now(),
		}
		if m.MatchType == "" {
			m.MatchType = models.MatchComplementary
		}
		if err := s.InsertMatch(ctx, m); err != nil {
			if errors.Is(err, store.ErrDuplicatePair) {
				metrics.MatchEntriesDropped.WithLabelValues(dropDuplicate).Inc()
				continue
			}
			return created, err
		}
		metrics.MatchesPersisted.Inc()
		created = append(created, m)
	}
	return created, nil
}

func (p Policy) minScore() float64 {
	if p.MinOverallScore <= 0 {
		return DefaultMinOverallScore
	}
	return p.MinOverallScore
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}

func orSimilarity(v, similarity float64) float64 {
	if math.IsNaN(v) {
		return similarity
	}
	return v
}
