// internal/workers/lifecycle/schedule-meeting/models.go
package schedulemeeting

import (
	"time"

	"event-matchmaker/internal/models"
)

type Input struct {
	MatchID     string    `json:"matchId"`
	MeetingTime time.Time `json:"meetingTime"`
	Location    *string   `json:"location,omitempty"`
}

type Output struct {
	Match           *models.Match `json:"match"`
	MeetingTime     string        `json:"meetingTime"` // ISO 8601, UTC
	MeetingLocation string        `json:"meetingLocation"`
}
