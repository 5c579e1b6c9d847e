// internal/workers/lifecycle/record-feedback/models.go
package recordfeedback

import (
	"time"

	"event-matchmaker/internal/models"
)

type Input struct {
	MatchID           string     `json:"matchId"`
	Outcome           *string    `json:"outcome,omitempty"`
	SatisfactionScore *float64   `json:"satisfactionScore,omitempty"` // clamped to [1,5]
	MetAt             *time.Time `json:"metAt,omitempty"`
	Hidden            *bool      `json:"hidden,omitempty"`
}

type Output struct {
	Match *models.Match `json:"match"`
}
