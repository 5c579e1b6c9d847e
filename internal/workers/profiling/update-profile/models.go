// internal/workers/profiling/update-profile/models.go
package updateprofile

import "event-matchmaker/internal/models"

// Input carries only the fields being edited. An absent field keeps its stored value;
// an empty list clears it.
type Input struct {
	ProfileID            string                  `json:"profileId"`
	Name                 *string                 `json:"name,omitempty"`
	Email                *string                 `json:"email,omitempty"`
	Title                *string                 `json:"title,omitempty"`
	Company              *string                 `json:"company,omitempty"`
	TicketType           *string                 `json:"ticketType,omitempty"`
	Interests            []string                `json:"interests,omitempty"`
	Goals                *string                 `json:"goals,omitempty"`
	Seeking              []string                `json:"seeking,omitempty"`
	NotLookingFor        []string                `json:"notLookingFor,omitempty"`
	PreferredGeographies []string                `json:"preferredGeographies,omitempty"`
	DealStage            *string                 `json:"dealStage,omitempty"`
	EnrichedProfile      *models.EnrichedProfile `json:"enrichedProfile,omitempty"`
}

type Output struct {
	ProfileID         string `json:"profileId"`
	NeedsReprocessing bool   `json:"needsReprocessing"`
	UpdatedAt         string `json:"updatedAt"` // ISO 8601
}
