// internal/matching/engagement/nudges.go
package engagement

import (
	"fmt"
	"time"

	"event-matchmaker/internal/models"
)

const (
	pendingResponseAfter = 24 * time.Hour
	reminderWindow       = 24 * time.Hour
	feedbackWindow       = 72 * time.Hour
)

var reasons = map[models.NudgeType]string{
	models.NudgePendingResponse:     "Match pending for over 24 hours",
	models.NudgePreMeetingReminder:  "Meeting starts within 24 hours",
	models.NudgePostMeetingFeedback: "Meeting completed without satisfaction feedback",
}

// NudgeKey identifies one nudge type for one match on the UTC day of now.
func NudgeKey(matchID string, t models.NudgeType, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", matchID, t, now.UTC().Format("2006-01-02"))
}

// BuildDueNudges lists the nudges due at now. Each match is evaluated on its own.
func BuildDueNudges(matches []*models.Match, now time.Time) []models.Nudge {
	now = now.UTC()
	var due []models.Nudge

	for _, m := range matches {
		created := m.CreatedAt
		if created.IsZero() {
			created = now
		}

		if m.Status == models.StatusPending && now.Sub(created) >= pendingResponseAfter {
			due = append(due, newNudge(m.ID, models.NudgePendingResponse, now))
		}

		if m.MeetingTime != nil && m.MetAt == nil &&
			(m.Status == models.StatusAccepted || m.Status == models.StatusMet) {
			until := m.MeetingTime.Sub(now)
			if until >= 0 && until <= reminderWindow {
				due = append(due, newNudge(m.ID, models.NudgePreMeetingReminder, now))
			}
		}

		if m.MetAt != nil && m.SatisfactionScore == nil && now.Sub(*m.MetAt) <= feedbackWindow {
			due = append(due, newNudge(m.ID, models.NudgePostMeetingFeedback, now))
		}
	}
	return due
}

func newNudge(matchID string, t models.NudgeType, now time.Time) models.Nudge {
	return models.Nudge{
		Key:       NudgeKey(matchID, t, now),
		MatchID:   matchID,
		Type:      t,
		Reason:    reasons[t],
		CreatedAt: now,
	}
}
