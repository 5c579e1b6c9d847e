// internal/workers/matching/generate-matches/models.go
package generatematches

type Input struct {
	ProfileID     string `json:"profileId"`
	TopK          int    `json:"topK,omitempty"`
	ClearExisting *bool  `json:"clearExisting,omitempty"` // defaults to true
}

type Output struct {
	ProfileID      string         `json:"profileId"`
	MatchesCreated int            `json:"matchesCreated"`
	Matches        []MatchSummary `json:"matches"`
}

type MatchSummary struct {
	MatchID        string   `json:"matchId"`
	OtherProfileID string   `json:"otherProfileId"`
	OverallScore   float64  `json:"overallScore"`
	MatchType      string   `json:"matchType"`
	Explanation    string   `json:"explanation"`
	Confidence     *float64 `json:"confidence,omitempty"`
}
