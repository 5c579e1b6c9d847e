// internal/workers/profiling/process-profile/models.go
package processprofile

type Input struct {
	ProfileID string `json:"profileId"`
}

type Output struct {
	ProfileID          string   `json:"profileId"`
	AISummary          string   `json:"aiSummary"`
	IntentTags         []string `json:"intentTags"`
	DealReadinessScore float64  `json:"dealReadinessScore"`
	Embedded           bool     `json:"embedded"`
	ProcessedAt        string   `json:"processedAt"` // ISO 8601
}
