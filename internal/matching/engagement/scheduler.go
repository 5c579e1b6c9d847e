// internal/matching/engagement/scheduler.go
package engagement

import (
	"context"
	"time"

	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/metrics"
	"event-matchmaker/internal/common/observability"
	"event-matchmaker/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

const DefaultMaxListed = 200

// MatchSource is the slice of the store the scheduler reads.
type MatchSource interface {
	ListMatches(ctx context.Context) ([]*models.Match, error)
	GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, error)
}

type Config struct {
	MaxListed int
}

type Scheduler struct {
	matches  MatchSource
	delivery DeliveryStore
	notifier Notifier
	config   Config
	now      func() time.Time
	obs      *observability.Observability
	logger   logger.Logger
}

// NewScheduler builds a Scheduler. A nil notifier marks nudges delivered without sending
// anything, leaving delivery to whoever consumes the trigger summary.
func NewScheduler(cfg Config, matches MatchSource, delivery DeliveryStore, notifier Notifier,
	obs *observability.Observability, log logger.Logger) *Scheduler {
	if cfg.MaxListed <= 0 {
		cfg.MaxListed = DefaultMaxListed
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Scheduler{
		matches:  matches,
		delivery: delivery,
		notifier: notifier,
		config:   cfg,
		now:      func() time.Time { return time.Now().UTC() },
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "engagement"}),
	}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// ComputeDueNudges evaluates every stored match at now, or at the current time when now is nil.
func (s *Scheduler) ComputeDueNudges(ctx context.Context, now *time.Time) ([]models.Nudge, error) {
	at := s.now()
	if now != nil {
		at = now.UTC()
	}

	due, _, err := s.due(ctx, at)
	return due, err
}

func (s *Scheduler) due(ctx context.Context, at time.Time) ([]models.Nudge, []*models.Match, error) {
	matches, err := s.matches.ListMatches(ctx)
	if err != nil {
		return nil, nil, err
	}

	due := BuildDueNudges(matches, at)
	for _, n := range due {
		metrics.NudgesDue.WithLabelValues(string(n.Type)).Inc()
	}
	return due, matches, nil
}

// TriggerNudges computes the undelivered due nudges. Unless dryRun is set it delivers them
// and marks the ones that went out. A dry run changes nothing and can be repeated.
func (s *Scheduler) TriggerNudges(ctx context.Context, dryRun bool) (*models.NudgeSummary, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "engagement.trigger_nudges", attribute.Bool("dry_run", dryRun))
	defer span.End()

	summary, err := s.trigger(ctx, dryRun)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.obs.RecordPipelineRun(ctx, "trigger_nudges", status, time.Since(start))
	return summary, err
}

func (s *Scheduler) trigger(ctx context.Context, dryRun bool) (*models.NudgeSummary, error) {
	due, matches, err := s.due(ctx, s.now())
	if err != nil {
		return nil, err
	}
	ready, err := s.delivery.FilterUndelivered(ctx, due)
	if err != nil {
		return nil, err
	}

	summary := &models.NudgeSummary{
		DryRun:     dryRun,
		TotalDue:   len(due),
		ToDispatch: len(ready),
		Nudges:     ready,
	}
	if len(ready) > s.config.MaxListed {
		summary.Nudges = ready[:s.config.MaxListed]
	}
	if summary.Nudges == nil {
		summary.Nudges = []models.Nudge{}
	}
	if dryRun || len(ready) == 0 {
		return summary, nil
	}

	delivered, failed, err := s.dispatch(ctx, ready, matches)
	if err != nil {
		return nil, err
	}
	if err := s.delivery.MarkDelivered(ctx, delivered); err != nil {
		return nil, err
	}
	summary.Dispatched = len(delivered)
	summary.Failed = failed

	s.logger.Info("nudges triggered", map[string]interface{}{
		"totalDue":   summary.TotalDue,
		"toDispatch": summary.ToDispatch,
		"dispatched": summary.Dispatched,
		"failed":     summary.Failed,
	})
	return summary, nil
}

func (s *Scheduler) dispatch(ctx context.Context, ready []models.Nudge, all []*models.Match) ([]models.Nudge, int, error) {
	if s.notifier == nil {
		for _, n := range ready {
			metrics.NudgesDispatched.WithLabelValues(string(n.Type), "queued").Inc()
		}
		return ready, 0, nil
	}

	matches, profiles, err := s.resolve(ctx, ready, all)
	if err != nil {
		return nil, 0, err
	}

	delivered := make([]models.Nudge, 0, len(ready))
	failed := 0
	for _, n := range ready {
		m, ok := matches[n.MatchID]
		if !ok {
			continue
		}
		if err := s.notifier.Notify(ctx, n, m, profiles[m.AttendeeAID], profiles[m.AttendeeBID]); err != nil {
			failed++
			metrics.NudgesDispatched.WithLabelValues(string(n.Type), "failed").Inc()
			s.logger.WithError(err).Warn("nudge delivery failed", map[string]interface{}{
				"key":     n.Key,
				"matchId": n.MatchID,
			})
			continue
		}
		metrics.NudgesDispatched.WithLabelValues(string(n.Type), "sent").Inc()
		delivered = append(delivered, n)
	}
	return delivered, failed, nil
}

func (s *Scheduler) resolve(ctx context.Context, ready []models.Nudge, all []*models.Match) (map[string]*models.Match, map[string]*models.Profile, error) {
	wanted := make(map[string]struct{}, len(ready))
	for _, n := range ready {
		wanted[n.MatchID] = struct{}{}
	}

	matches := make(map[string]*models.Match, len(wanted))
	var ids []string
	for _, m := range all {
		if _, ok := wanted[m.ID]; ok {
			matches[m.ID] = m
			ids = append(ids, m.AttendeeAID, m.AttendeeBID)
		}
	}

	found, err := s.matches.GetProfiles(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	profiles := make(map[string]*models.Profile, len(found))
	for _, p := range found {
		profiles[p.ID] = p
	}
	return matches, profiles, nil
}
