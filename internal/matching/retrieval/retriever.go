// internal/matching/retrieval/retriever.go
package retrieval

import (
	"context"
	"errors"
	"fmt"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/common/observability"
	"event-matchmaker/internal/matching/eligibility"
	"event-matchmaker/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const minOverfetchFactor = 5

// Candidate is an eligible neighbor resolved to its profile.
type Candidate struct {
	Profile    *models.Profile
	Similarity float64
}

// ProfileSource resolves cached candidate ids back to profiles.
type ProfileSource interface {
	GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, error)
}

// Processor populates derived fields, embedding included, for a profile that has none.
type Processor interface {
	Process(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

type Config struct {
	OverfetchFactor int
	MaxOverfetch    int
}

type Retriever struct {
	config    Config
	profiles  ProfileSource
	index     SimilarityIndex
	cache     CandidateCache
	processor Processor
	obs       *observability.Observability
	logger    logger.Logger
}

func NewRetriever(cfg Config, profiles ProfileSource, index SimilarityIndex, cache CandidateCache,
	processor Processor, obs *observability.Observability, log logger.Logger) *Retriever {
	if cfg.OverfetchFactor < minOverfetchFactor {
		cfg.OverfetchFactor = minOverfetchFactor
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Retriever{
		config:    cfg,
		profiles:  profiles,
		index:     index,
		cache:     cache,
		processor: processor,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "retrieval"}),
	}
}

// Retrieve returns at most topK eligible candidates for attendee, most similar first.
// Profiles in excluded never appear. The attendee is processed first if it has no embedding.
func (r *Retriever) Retrieve(ctx context.Context, attendee *models.Profile, topK int, excluded []string) ([]Candidate, error) {
	if topK <= 0 {
		return nil, nil
	}

	ctx, span := r.obs.StartSpan(ctx, "retrieval.candidates",
		attribute.String("attendee_id", attendee.ID), attribute.Int("top_k", topK))
	defer span.End()

	if cached, ok := r.fromCache(ctx, attendee.ID, topK, excluded); ok {
		return cached, nil
	}

	if !attendee.HasEmbedding() {
		processed, err := r.ensureEmbedding(ctx, attendee)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		attendee = processed
	}

	neighbors, err := r.index.Nearest(ctx, attendee.Embedding, attendee.ID, excluded, r.overfetch(topK))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	candidates, err := r.filterEligible(ctx, attendee, neighbors, topK, excluded)
	if err != nil {
		return nil, err
	}

	r.store(ctx, attendee.ID, topK, candidates)
	return candidates, nil
}

// Warm fills the cache for each attendee that already has an embedding and returns how many were warmed.
// Failures are logged and skipped.
func (r *Retriever) Warm(ctx context.Context, attendees []*models.Profile, topK int, excluded []string) int {
	warmed := 0
	for _, a := range attendees {
		if !a.HasEmbedding() {
			continue
		}
		if err := r.cache.Invalidate(ctx, a.ID); err != nil {
			r.logger.Warn("failed to invalidate candidate cache", map[string]interface{}{
				"attendeeId": a.ID,
				"error":      err,
			})
		}
		if _, err := r.Retrieve(ctx, a, topK, excluded); err != nil {
			r.logger.Error("failed to warm candidates", map[string]interface{}{
				"attendeeId": a.ID,
				"error":      err,
			})
			continue
		}
		warmed++
	}
	return warmed
}

// Invalidate drops the cached candidate list for one attendee. When the index keeps its
// own copy of embeddings the attendee's vector is removed too, until it is processed again.
func (r *Retriever) Invalidate(ctx context.Context, attendeeID string) error {
	cacheErr := r.cache.Invalidate(ctx, attendeeID)
	if ix, ok := r.index.(Indexer); ok {
		if err := ix.Remove(ctx, attendeeID); err != nil {
			return errors.Join(cacheErr, err)
		}
	}
	return cacheErr
}

func (r *Retriever) overfetch(topK int) int {
	n := topK * r.config.OverfetchFactor
	limit := r.config.MaxOverfetch
	if limit < topK {
		limit = topK
	}
	if n > limit {
		n = limit
	}
	return n
}

func (r *Retriever) ensureEmbedding(ctx context.Context, attendee *models.Profile) (*models.Profile, error) {
	if r.processor == nil {
		return nil, apperrors.NewProviderError("embedding", fmt.Errorf("profile %s has no embedding", attendee.ID))
	}
	processed, err := r.processor.Process(ctx, attendee)
	if err != nil {
		return nil, err
	}
	if !processed.HasEmbedding() {
		return nil, apperrors.NewProviderError("embedding", fmt.Errorf("profile %s has no embedding after processing", attendee.ID))
	}
	return processed, nil
}

func (r *Retriever) filterEligible(ctx context.Context, attendee *models.Profile, neighbors []Neighbor, topK int, excluded []string) ([]Candidate, error) {
	skip := make(map[string]struct{}, len(excluded)+1)
	skip[attendee.ID] = struct{}{}
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	ids := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if _, ok := skip[n.ID]; !ok {
			ids = append(ids, n.ID)
		}
	}
	profiles, err := r.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]Candidate, 0, topK)
	for _, n := range neighbors {
		if len(out) == topK {
			break
		}
		p, ok := byID[n.ID]
		if !ok {
			continue
		}
		if reason := eligibility.Check(attendee, p); reason != eligibility.Eligible {
			r.logger.Debug("candidate excluded", map[string]interface{}{
				"attendeeId":  attendee.ID,
				"candidateId": p.ID,
				"rule":        string(reason),
			})
			continue
		}
		out = append(out, Candidate{Profile: p, Similarity: n.Similarity})
	}
	return out, nil
}

// fromCache answers from the cached set when it was built for at least topK candidates.
// Ids in excluded are dropped from a hit so organizers flagged after caching never surface.
func (r *Retriever) fromCache(ctx context.Context, attendeeID string, topK int, excluded []string) ([]Candidate, bool) {
	set, ok, err := r.cache.Get(ctx, attendeeID)
	if err != nil {
		metrics.CandidateCacheLookups.WithLabelValues("error").Inc()
		r.logger.Warn("candidate cache read failed", map[string]interface{}{
			"attendeeId": attendeeID,
			"error":      err,
		})
		return nil, false
	}
	if !ok || !set.Covers(topK) {
		metrics.CandidateCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CandidateCacheLookups.WithLabelValues("hit").Inc()

	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}
	neighbors := make([]Neighbor, 0, topK)
	for _, n := range set.Candidates {
		if len(neighbors) == topK {
			break
		}
		if _, ok := skip[n.ID]; !ok {
			neighbors = append(neighbors, n)
		}
	}
	ids := make([]string, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.ID
	}
	profiles, err := r.profiles.GetProfiles(ctx, ids)
	if err != nil {
		r.logger.Warn("failed to resolve cached candidates", map[string]interface{}{
			"attendeeId": attendeeID,
			"error":      err,
		})
		return nil, false
	}
	byID := make(map[string]*models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	out := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if p, ok := byID[n.ID]; ok {
			out = append(out, Candidate{Profile: p, Similarity: n.Similarity})
		}
	}
	return out, true
}

func (r *Retriever) store(ctx context.Context, attendeeID string, topK int, candidates []Candidate) {
	neighbors := make([]Neighbor, len(candidates))
	for i, c := range candidates {
		neighbors[i] = Neighbor{ID: c.Profile.ID, Similarity: c.Similarity}
	}
	if err := r.cache.Set(ctx, attendeeID, CandidateSet{TopK: topK, Candidates: neighbors}); err != nil {
		r.logger.Warn("candidate cache write failed", map[string]interface{}{
			"attendeeId": attendeeID,
			"error":      err,
		})
	}
}
