// internal/workers/lifecycle/update-match-status/models.go
package updatematchstatus

import "event-matchmaker/internal/models"

type Input struct {
	MatchID        string  `json:"matchId"`
	ActorProfileID string  `json:"actorProfileId"`
	Status         string  `json:"status"` // accepted, declined or met
	Reason         *string `json:"reason,omitempty"`
}

type Output struct {
	Match  *models.Match `json:"match"`
	Status string        `json:"status"`
}
