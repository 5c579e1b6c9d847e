// internal/models/notification.go
package models

import "time"

type NudgeType string

const (
	NudgePendingResponse     NudgeType = "pending_response"
	NudgePreMeetingReminder  NudgeType = "pre_meeting_reminder"
	NudgePostMeetingFeedback NudgeType = "post_meeting_feedback"
)

// Nudge is a due reminder for one match. Key is "<match_id>:<type>:<YYYY-MM-DD>" and
// deduplicates delivery within a day.
type Nudge struct {
	Key       string    `json:"key"`
	MatchID   string    `json:"match_id"`
	Type      NudgeType `json:"nudge_type"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// NudgeSummary is the result of a trigger run.
type NudgeSummary struct {
	DryRun     bool    `json:"dry_run"`
	TotalDue   int     `json:"total_due"`
	ToDispatch int     `json:"to_dispatch"`
	Dispatched int     `json:"dispatched"`
	Failed     int     `json:"failed"`
	Nudges     []Nudge `json:"nudges"`
}
