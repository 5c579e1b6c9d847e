// internal/matching/lifecycle/lifecycle.go
package lifecycle

import (
	"context"
	"math"
	"strings"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/models"
)

// DefaultMeetingLocation is stored when a meeting is scheduled without a location.
const DefaultMeetingLocation = "Louvre Palace, Paris - TBD at venue"

const (
	minSatisfaction = 1.0
	maxSatisfaction = 5.0
)

// OverallStatus derives the match status from both sides. A decline on either side wins.
// Both sides must reach met for the match to be met.
func OverallStatus(a, b models.MatchStatus) models.MatchStatus {
	switch {
	case a == models.StatusDeclined || b == models.StatusDeclined:
		return models.StatusDeclined
	case a == models.StatusMet && b == models.StatusMet:
		return models.StatusMet
	case progressed(a) && progressed(b):
		return models.StatusAccepted
	default:
		return models.StatusPending
	}
}

func progressed(s models.MatchStatus) bool {
	return s == models.StatusAccepted || s == models.StatusMet
}

// MatchStore is the slice of the store the lifecycle needs.
type MatchStore interface {
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	UpdateMatch(ctx context.Context, m *models.Match) error
}

// Feedback carries optional post-meeting fields. Nil fields are left unchanged.
type Feedback struct {
	Outcome      *string
	Satisfaction *float64
	MetAt        *time.Time
	Hidden       *bool
}

type Service struct {
	store  MatchStore
	now    func() time.Time
	logger logger.Logger
}

func NewService(store MatchStore, log logger.Logger) *Service {
	return &Service{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithFields(map[string]interface{}{"component": "lifecycle"}),
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpdateStatus records actorID's response. An actor linked to neither side overwrites the
// overall status directly and leaves both sides untouched.
func (s *Service) UpdateStatus(ctx context.Context, matchID, actorID, status string, reason *string) (*models.Match, error) {
	next, err := models.ParseMatchStatus(status)
	if err != nil || next == models.StatusPending {
		return nil, apperrors.NewValidationError("status", "status must be accepted, declined, or met")
	}

	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	switch m.SideOf(actorID) {
	case models.SideA:
		m.StatusA = next
	case models.SideB:
		m.StatusB = next
	default:
		m.Status = next
		s.logger.Warn("status overridden by actor outside the match", map[string]interface{}{
			"matchId": m.ID,
			"actorId": actorID,
			"status":  string(next),
		})
		if err := s.store.UpdateMatch(ctx, m); err != nil {
			return nil, err
		}
		return m, nil
	}

	m.Status = OverallStatus(m.StatusA, m.StatusB)
	if next == models.StatusDeclined {
		m.DeclineReason = trimmed(reason)
	}

	if err := s.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("match status updated", map[string]interface{}{
		"matchId": m.ID,
		"actorId": actorID,
		"statusA": string(m.StatusA),
		"statusB": string(m.StatusB),
		"status":  string(m.Status),
	})
	return m, nil
}

// Schedule sets the meeting time of a mutually accepted match.
func (s *Service) Schedule(ctx context.Context, matchID string, at time.Time, location *string) (*models.Match, error) {
	if at.IsZero() {
		return nil, apperrors.NewValidationError("meeting_time", "meeting time is required")
	}

	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusAccepted {
		return nil, apperrors.NewStateConflictError("meeting time can only be set on mutually accepted matches")
	}

	at = at.UTC()
	loc := DefaultMeetingLocation
	if l := trimmed(location); l != nil {
		loc = *l
	}
	m.MeetingTime = &at
	m.MeetingLocation = &loc

	if err := s.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordFeedback stores post-meeting feedback. Satisfaction is clamped to [1,5]. An explicit
// met time wins; otherwise recording an outcome on a match with no met time sets it to now.
func (s *Service) RecordFeedback(ctx context.Context, matchID string, fb Feedback) (*models.Match, error) {
	if fb.Satisfaction != nil && (math.IsNaN(*fb.Satisfaction) || math.IsInf(*fb.Satisfaction, 0)) {
		return nil, apperrors.NewValidationError("satisfaction_score", "must be a finite number")
	}

	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if fb.Outcome != nil {
		outcome := *fb.Outcome
		m.MeetingOutcome = &outcome
	}
	if fb.Satisfaction != nil {
		score := math.Max(minSatisfaction, math.Min(maxSatisfaction, *fb.Satisfaction))
		m.SatisfactionScore = &score
	}
	switch {
	case fb.MetAt != nil:
		metAt := fb.MetAt.UTC()
		m.MetAt = &metAt
	case fb.Outcome != nil && *fb.Outcome != "" && m.MetAt == nil:
		now := s.now()
		m.MetAt = &now
	}
	if fb.Hidden != nil {
		m.HiddenByUser = *fb.Hidden
	}

	if err := s.store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
