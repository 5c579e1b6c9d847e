// internal/workers/matching/generate-all-matches/models.go
package generateallmatches

type Input struct {
	TopK int `json:"topK,omitempty"`
}

type Output struct {
	MatchesCreated int    `json:"matchesCreated"`
	CompletedAt    string `json:"completedAt"` // ISO 8601
}
