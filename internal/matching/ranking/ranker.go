// internal/matching/ranking/ranker.go
package ranking

import (
	"context"
	"errors"
	"math"
	"sort"

	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/common/observability"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	RerankEnabled     bool
	ConfidenceEnabled bool
}

type Ranker struct {
	generator TextGenerator
	config    Config
	obs       *observability.Observability
	logger    logger.Logger
}

func NewRanker(generator TextGenerator, cfg Config, obs *observability.Observability, log logger.Logger) *Ranker {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Ranker{
		generator: generator,
		config:    cfg,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "ranking"}),
	}
}

// Rank orders candidates for attendee, best first. It never fails: provider errors and
// unusable responses produce the similarity-ordered fallback instead.
func (r *Ranker) Rank(ctx context.Context, attendee *models.Profile, candidates []retrieval.Candidate) []Entry {
	if len(candidates) == 0 {
		return nil
	}

	ctx, span := r.obs.StartSpan(ctx, "ranking.rank",
		attribute.String("attendee_id", attendee.ID), attribute.Int("candidates", len(candidates)))
	defer span.End()

	raw, err := r.generator.GenerateContent(ctx, BuildPrompt(attendee, candidates))
	if err != nil {
		return r.fallback(attendee.ID, candidates, err)
	}

	entries, err := ParseResponse(raw)
	if err != nil {
		return r.fallback(attendee.ID, candidates, err)
	}
	if len(entries) == 0 {
		return r.fallback(attendee.ID, candidates, errors.New("empty ranking response"))
	}

	for i := range entries {
		similarity := 0.0
		if idx := entries[i].CandidateIndex; idx >= 0 && idx < len(candidates) {
			similarity = candidates[idx].Similarity
		}
		entries[i].OverallScore = scoreOr(entries[i].OverallScore, similarity)
		entries[i].ComplementaryScore = scoreOr(entries[i].ComplementaryScore, similarity)
	}

	if r.config.ConfidenceEnabled {
		for i := range entries {
			c := Confidence(entries[i])
			entries[i].Confidence = &c
		}
	}
	if r.config.RerankEnabled {
		entries = Rerank(entries)
	}
	return entries
}

// Fallback ranks candidates by raw similarity.
func Fallback(candidates []retrieval.Candidate) []Entry {
	entries := make([]Entry, len(candidates))
	for i, c := range candidates {
		entries[i] = Entry{
			CandidateIndex:     i,
			OverallScore:       c.Similarity,
			ComplementaryScore: c.Similarity,
			MatchType:          models.MatchComplementary,
			Explanation:        FallbackExplanation,
			Fallback:           true,
		}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].OverallScore > entries[b].OverallScore
	})
	return entries
}

func (r *Ranker) fallback(attendeeID string, candidates []retrieval.Candidate, err error) []Entry {
	metrics.ProviderFallbacks.WithLabelValues("ranking").Inc()
	r.logger.Warn("ranking response unusable, falling back to similarity order", map[string]interface{}{
		"attendeeId": attendeeID,
		"error":      err.Error(),
	})
	return Fallback(candidates)
}

func scoreOr(v, def float64) float64 {
	if math.IsNaN(v) {
		v = def
	}
	return clamp01(v)
}
