// internal/workers/matching/warm-candidates/models.go
package warmcandidates

type Input struct {
	TopK int `json:"topK,omitempty"`
}

type Output struct {
	ProfilesWarmed int    `json:"profilesWarmed"`
	WarmedAt       string `json:"warmedAt"` // ISO 8601
}
