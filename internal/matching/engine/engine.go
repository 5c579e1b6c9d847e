// internal/matching/engine/engine.go
package engine

import (
	"context"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/common/observability"
	"event-matchmaker/internal/matching/ranking"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultTopK = 10

type ProfileProcessor interface {
	Process(ctx context.Context, p *models.Profile) (*models.Profile, error)
}

type CandidateRetriever interface {
	Retrieve(ctx context.Context, attendee *models.Profile, topK int, excluded []string) ([]retrieval.Candidate, error)
	Warm(ctx context.Context, attendees []*models.Profile, topK int, excluded []string) int
	Invalidate(ctx context.Context, attendeeID string) error
}

type Ranker interface {
	Rank(ctx context.Context, attendee *models.Profile, candidates []retrieval.Candidate) []ranking.Entry
}

type Config struct {
	TopK            int
	MinOverallScore float64
	OrganizerEmails []string
}

// Engine runs the matching pipeline: retrieve, rank, persist.
type Engine struct {
	store     store.Store
	processor ProfileProcessor
	retriever CandidateRetriever
	ranker    Ranker
	policy    Policy
	config    Config
	obs       *observability.Observability
	logger    logger.Logger
}

func New(cfg Config, st store.Store, processor ProfileProcessor, retriever CandidateRetriever, ranker Ranker,
	obs *observability.Observability, log logger.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Engine{
		store:     st,
		processor: processor,
		retriever: retriever,
		ranker:    ranker,
		policy:    Policy{MinOverallScore: cfg.MinOverallScore},
		config:    cfg,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "engine"}),
	}
}

func (e *Engine) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	return e.store.GetProfile(ctx, profileID)
}

// ProcessProfile populates the derived fields of a stored profile.
func (e *Engine) ProcessProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	p, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return e.processor.Process(ctx, p)
}

// UpdateProfile stores an edited profile. Editing a matching-relevant field clears the
// derived fields so the next run regenerates them.
func (e *Engine) UpdateProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	before, err := e.store.GetProfile(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	updated := *p
	updated.Normalize()
	updated.Summary = before.Summary
	updated.IntentTags = before.IntentTags
	updated.DealReadiness = before.DealReadiness
	updated.Embedding = before.Embedding
	updated.CreatedAt = before.CreatedAt

	invalidated := models.MatchingFieldsChanged(before, &updated)
	if invalidated {
		updated.ClearDerived()
	}

	if err := e.store.UpdateProfile(ctx, &updated); err != nil {
		return nil, err
	}

	if invalidated {
		if err := e.retriever.Invalidate(ctx, updated.ID); err != nil {
			e.logger.Warn("candidate cache invalidation failed", map[string]interface{}{
				"profileId": updated.ID,
				"error":     err.Error(),
			})
		}
		e.logger.Info("profile derived fields cleared", map[string]interface{}{"profileId": updated.ID})
	}
	return &updated, nil
}

// GenerateForProfile runs the pipeline for one attendee. With clearExisting every match
// involving the attendee is deleted first, in the same transaction as the inserts.
func (e *Engine) GenerateForProfile(ctx context.Context, profileID string, topK int, clearExisting bool) ([]*models.Match, error) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "engine.generate_for_profile",
		attribute.String("attendee_id", profileID), attribute.Bool("clear_existing", clearExisting))
	defer span.End()

	matches, err := e.generateForProfile(ctx, profileID, e.topK(topK), clearExisting)
	e.obs.RecordPipelineRun(ctx, "generate_for_profile", runStatus(err), time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	e.logger.Info("matches generated", map[string]interface{}{
		"attendeeId": profileID,
		"created":    len(matches),
	})
	return matches, nil
}

func (e *Engine) generateForProfile(ctx context.Context, profileID string, topK int, clearExisting bool) ([]*models.Match, error) {
	attendee, err := e.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !attendee.HasEmbedding() {
		if attendee, err = e.processor.Process(ctx, attendee); err != nil {
			return nil, err
		}
	}

	excluded, err := e.store.OrganizerProfileIDs(ctx, e.config.OrganizerEmails)
	if err != nil {
		return nil, err
	}

	// provider calls happen before the transaction opens
	r, err := e.rank(ctx, attendee, topK, excluded)
	if err != nil {
		return nil, err
	}

	var created []*models.Match
	err = e.store.WithTx(ctx, func(tx store.Store) error {
		if clearExisting {
			deleted, err := tx.DeleteMatchesForProfile(ctx, attendee.ID)
			if err != nil {
				return err
			}
			e.logger.Debug("existing matches cleared", map[string]interface{}{
				"attendeeId": attendee.ID,
				"deleted":    deleted,
			})
		}
		created, err = e.persist(ctx, tx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GenerateAll regenerates the whole pool and returns the number of matches created.
// Organizer profiles are left out. A profile that fails is logged and skipped.
func (e *Engine) GenerateAll(ctx context.Context, topK int) (int, error) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "engine.generate_all")
	defer span.End()

	total, err := e.generateAll(ctx, e.topK(topK))
	e.obs.RecordPipelineRun(ctx, "generate_all", runStatus(err), time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	span.SetAttributes(attribute.Int("created", total))
	return total, nil
}

func (e *Engine) generateAll(ctx context.Context, topK int) (int, error) {
	pool, excluded, err := e.pool(ctx)
	if err != nil {
		return 0, err
	}

	ranked := make([]rankedAttendee, 0, len(pool))
	for _, p := range pool {
		if !p.HasEmbedding() {
			processed, err := e.processor.Process(ctx, p)
			if err != nil {
				e.batchFailure(p.ID, err)
				continue
			}
			p = processed
		}
		r, err := e.rank(ctx, p, topK, excluded)
		if err != nil {
			e.batchFailure(p.ID, err)
			continue
		}
		ranked = append(ranked, r)
	}

	total := 0
	err = e.store.WithTx(ctx, func(tx store.Store) error {
		deleted, err := tx.DeleteAllMatches(ctx)
		if err != nil {
			return err
		}
		e.logger.Info("match pool cleared", map[string]interface{}{"deleted": deleted})

		for _, r := range ranked {
			var created []*models.Match
			err := tx.WithTx(ctx, func(item store.Store) error {
				var err error
				created, err = e.persist(ctx, item, r)
				return err
			})
			if err != nil {
				e.batchFailure(r.attendee.ID, err)
				continue
			}
			total += len(created)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.Info("pool regenerated", map[string]interface{}{
		"attendees": len(ranked),
		"created":   total,
	})
	return total, nil
}

// WarmCandidates precomputes the candidate cache for every embedded, non-organizer profile.
func (e *Engine) WarmCandidates(ctx context.Context, topK int) (int, error) {
	pool, excluded, err := e.pool(ctx)
	if err != nil {
		return 0, err
	}
	warmed := e.retriever.Warm(ctx, pool, e.topK(topK), excluded)
	e.logger.Info("candidate cache warmed", map[string]interface{}{
		"profiles": len(pool),
		"warmed":   warmed,
	})
	return warmed, nil
}

// ListMatchesForProfile returns the profile's visible matches, best first, each with the other party.
func (e *Engine) ListMatchesForProfile(ctx context.Context, profileID string) ([]models.MatchView, error) {
	if _, err := e.store.GetProfile(ctx, profileID); err != nil {
		return nil, err
	}
	matches, err := e.store.ListMatchesForProfile(ctx, profileID, false)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]string, len(matches))
	for i, m := range matches {
		otherIDs[i] = m.Other(profileID)
	}
	others, err := e.store.GetProfiles(ctx, otherIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Profile, len(others))
	for _, p := range others {
		byID[p.ID] = p
	}

	views := make([]models.MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, models.MatchView{Match: m, Other: byID[m.Other(profileID)]})
	}
	return views, nil
}

// rankedAttendee is one attendee's ranked candidates, ready to persist.
type rankedAttendee struct {
	attendee   *models.Profile
	candidates []retrieval.Candidate
	entries    []ranking.Entry
}

func (e *Engine) rank(ctx context.Context, attendee *models.Profile, topK int, excluded []string) (rankedAttendee, error) {
	candidates, err := e.retriever.Retrieve(ctx, attendee, topK, excluded)
	if err != nil {
		return rankedAttendee{}, err
	}
	r := rankedAttendee{attendee: attendee, candidates: candidates}
	if len(candidates) > 0 {
		r.entries = e.ranker.Rank(ctx, attendee, candidates)
	}
	return r, nil
}

func (e *Engine) persist(ctx context.Context, tx store.Store, r rankedAttendee) ([]*models.Match, error) {
	if len(r.entries) == 0 {
		return nil, nil
	}
	return e.policy.Persist(ctx, tx, r.attendee, r.candidates, r.entries)
}

// pool lists every profile except organizers, and the organizer ids themselves.
func (e *Engine) pool(ctx context.Context) ([]*models.Profile, []string, error) {
	excluded, err := e.store.OrganizerProfileIDs(ctx, e.config.OrganizerEmails)
	if err != nil {
		return nil, nil, err
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	profiles, err := e.store.ListProfiles(ctx)
	if err != nil {
		return nil, nil, err
	}
	pool := make([]*models.Profile, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := skip[p.ID]; !ok {
			pool = append(pool, p)
		}
	}
	return pool, excluded, nil
}

func (e *Engine) batchFailure(profileID string, err error) {
	metrics.BatchFailures.Inc()
	failure := apperrors.NewBatchItemFailure(profileID, err)
	e.logger.WithError(err).Error("batch item skipped", map[string]interface{}{
		"profileId": profileID,
		"code":      failure.Code,
	})
}

func (e *Engine) topK(topK int) int {
	if topK <= 0 {
		return e.config.TopK
	}
	return topK
}

func runStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
