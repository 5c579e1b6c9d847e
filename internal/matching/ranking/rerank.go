// internal/matching/ranking/rerank.go
package ranking

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"event-matchmaker/internal/models"
)

const (
	NoveltyBonus         = 0.03
	DuplicateTopicMalus  = 0.05
	detailedExplanation  = 120
	unknownTopic         = "unknown"
	maxActionBonus       = 0.08
	actionBonusPerItem   = 0.03
	longExplanationBonus = 0.08
	shortExplanation     = 0.03
)

// PrimaryTopic is the first shared sector, else the first synergy, case-folded.
func PrimaryTopic(sc models.SharedContext) string {
	for _, list := range [][]string{sc.Sectors, sc.Synergies} {
		if len(list) > 0 {
			if topic := strings.ToLower(strings.TrimSpace(list[0])); topic != "" {
				return topic
			}
		}
	}
	return unknownTopic
}

// Rerank adjusts scores in the given order and returns the entries sorted by adjusted score.
// non_obvious entries gain NoveltyBonus. An entry whose primary topic was already seen
// earlier in the order loses DuplicateTopicMalus. Scores are clamped to [0,1].
func Rerank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	seen := make(map[string]struct{}, len(out))
	for i := range out {
		score := out[i].OverallScore
		if out[i].MatchType == models.MatchNonObvious {
			score += NoveltyBonus
		}
		topic := PrimaryTopic(out[i].SharedContext)
		if _, dup := seen[topic]; dup {
			score -= DuplicateTopicMalus
		} else {
			seen[topic] = struct{}{}
		}
		out[i].OverallScore = clamp01(score)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].OverallScore > out[b].OverallScore
	})
	return out
}

// Confidence estimates how much to trust an explanation, in [0,1].
func Confidence(e Entry) float64 {
	lengthBonus := shortExplanation
	if utf8.RuneCountInString(e.Explanation) >= detailedExplanation {
		lengthBonus = longExplanationBonus
	}
	actionBonus := math.Min(maxActionBonus, actionBonusPerItem*float64(len(e.SharedContext.ActionItems)))
	return clamp01(0.55*e.OverallScore + 0.25*e.ComplementaryScore + lengthBonus + actionBonus)
}
