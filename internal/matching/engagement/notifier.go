// internal/matching/engagement/notifier.go
package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	awsclient "event-matchmaker/internal/common/aws"
	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/models"
)

const (
	ChannelNone  = "none"
	ChannelEmail = "email"
	ChannelSNS   = "sns"
)

// Notifier delivers one nudge about match m. a and b are the match's two parties and
// may be nil when a profile no longer exists.
type Notifier interface {
	Notify(ctx context.Context, n models.Nudge, m *models.Match, a, b *models.Profile) error
}

var subjects = map[models.NudgeType]string{
	models.NudgePendingResponse:     "An introduction is waiting for your answer",
	models.NudgePreMeetingReminder:  "Your meeting is coming up",
	models.NudgePostMeetingFeedback: "How did your meeting go?",
}

// EmailNotifier mails both parties through SES.
type EmailNotifier struct {
	client awsclient.SESService
	from   string
}

func NewEmailNotifier(client awsclient.SESService, from string) *EmailNotifier {
	return &EmailNotifier{client: client, from: from}
}

// Notify mails each reachable party independently. The nudge counts as delivered once
// any party was reached, so a retry never mails someone twice. It fails only when no
// party could be reached.
func (e *EmailNotifier) Notify(ctx context.Context, n models.Nudge, m *models.Match, a, b *models.Profile) error {
	sent := 0
	var failures []error
	for _, pair := range [][2]*models.Profile{{a, b}, {b, a}} {
		to, other := pair[0], pair[1]
		if to == nil || strings.TrimSpace(to.Email) == "" {
			continue
		}
		input := awsclient.TextEmail(e.from, to.Email, subjects[n.Type], emailBody(n, m, to, other))
		if _, err := e.client.SendEmail(ctx, input); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", to.ID, err))
			continue
		}
		sent++
	}
	if sent > 0 {
		return nil
	}
	if len(failures) > 0 {
		return apperrors.NewNotificationSendError(ChannelEmail, errors.Join(failures...))
	}
	return apperrors.NewNotificationSendError(ChannelEmail, fmt.Errorf("match %s has no reachable party", m.ID))
}

func emailBody(n models.Nudge, m *models.Match, to, other *models.Profile) string {
	otherName := "your match"
	if other != nil && other.Name != "" {
		otherName = other.Name
		if other.Company != "" {
			otherName += " (" + other.Company + ")"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", to.Name)
	switch n.Type {
	case models.NudgePendingResponse:
		fmt.Fprintf(&b, "Your introduction to %s is still pending. Accept or decline it so we can plan your schedule.\n", otherName)
	case models.NudgePreMeetingReminder:
		fmt.Fprintf(&b, "You meet %s", otherName)
		if m.MeetingTime != nil {
			fmt.Fprintf(&b, " at %s UTC", m.MeetingTime.UTC().Format("Mon 2 Jan 15:04"))
		}
		if m.MeetingLocation != nil {
			fmt.Fprintf(&b, ", %s", *m.MeetingLocation)
		}
		b.WriteString(".\n")
	case models.NudgePostMeetingFeedback:
		fmt.Fprintf(&b, "Tell us how your meeting with %s went. A satisfaction score helps us improve your next matches.\n", otherName)
	}
	if m.Explanation != "" {
		fmt.Fprintf(&b, "\nWhy we matched you: %s\n", m.Explanation)
	}
	return b.String()
}

// TopicNotifier publishes nudge events to SNS for downstream consumers.
type TopicNotifier struct {
	client   awsclient.SNSService
	topicARN string
}

func NewTopicNotifier(client awsclient.SNSService, topicARN string) *TopicNotifier {
	return &TopicNotifier{client: client, topicARN: topicARN}
}

type nudgeEvent struct {
	models.Nudge
	AttendeeAID string `json:"attendee_a_id"`
	AttendeeBID string `json:"attendee_b_id"`
}

func (t *TopicNotifier) Notify(ctx context.Context, n models.Nudge, m *models.Match, a, b *models.Profile) error {
	payload, err := json.Marshal(nudgeEvent{Nudge: n, AttendeeAID: m.AttendeeAID, AttendeeBID: m.AttendeeBID})
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	input := awsclient.TopicMessage(t.topicARN, string(n.Type), string(payload), map[string]string{
		"nudge_type": string(n.Type),
		"match_id":   n.MatchID,
	})
	if _, err := t.client.Publish(ctx, input); err != nil {
		return apperrors.NewNotificationSendError(ChannelSNS, err)
	}
	return nil
}
