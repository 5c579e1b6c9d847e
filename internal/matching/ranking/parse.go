// internal/matching/ranking/parse.go
package ranking

import (
	"encoding/json"
	"fmt"
	"math"

	"event-matchmaker/internal/common/ai"
	"event-matchmaker/internal/models"
)

// ParseResponse decodes the provider's JSON array. Absent scores come back as NaN;
// a missing or non-integer candidate_index becomes -1.
func ParseResponse(raw string) ([]Entry, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &items); err != nil {
		return nil, fmt.Errorf("parse ranking response: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		index := -1
		if n, ok := ai.CoerceInt(item["candidate_index"]); ok {
			index = n - 1
		}

		e := Entry{
			CandidateIndex:     index,
			OverallScore:       ai.CoerceFloat(item["overall_score"]),
			ComplementaryScore: ai.CoerceFloat(item["complementary_score"]),
			MatchType:          models.ParseMatchType(ai.CoerceString(item["match_type"])),
			Explanation:        ai.CoerceString(item["explanation"]),
		}
		if shared, ok := item["shared_context"].(map[string]any); ok {
			e.SharedContext = models.SharedContext{
				Sectors:     ai.CoerceStrings(shared["sectors"]),
				Synergies:   ai.CoerceStrings(shared["synergies"]),
				ActionItems: ai.CoerceStrings(shared["action_items"]),
			}
		}
		if c := ai.CoerceFloat(item["confidence"]); !math.IsNaN(c) {
			v := clamp01(c)
			e.Confidence = &v
		}
		entries = append(entries, e)
	}
	return entries, nil
}
