// internal/workers/matching/list-matches/models.go
package listmatches

type Input struct {
	ProfileID string `json:"profileId"`
}

type Output struct {
	ProfileID string      `json:"profileId"`
	Matches   []MatchItem `json:"matches"`
}

// MatchItem is one match as seen by the requesting attendee.
type MatchItem struct {
	MatchID         string       `json:"matchId"`
	OverallScore    float64      `json:"overallScore"`
	MatchType       string       `json:"matchType"`
	Explanation     string       `json:"explanation"`
	Status          string       `json:"status"`
	MyStatus        string       `json:"myStatus"`
	MeetingTime     string       `json:"meetingTime,omitempty"` // ISO 8601
	MeetingLocation string       `json:"meetingLocation,omitempty"`
	Other           *PartyDetail `json:"other,omitempty"`
}

type PartyDetail struct {
	ProfileID  string `json:"profileId"`
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Company    string `json:"company,omitempty"`
	TicketType string `json:"ticketType"`
}
