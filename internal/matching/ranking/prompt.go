// internal/matching/ranking/prompt.go
package ranking

import (
	"fmt"
	"strings"

	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"
)

const promptHeader = `You are the matchmaking engine of an invitation-only conference for investors, founders,
builders and regulators. Rank the candidates below for the target attendee and explain each match.

Look past keyword overlap. Favour:
1. complementary matches, where one side has what the other needs
2. non_obvious matches, where different sectors face the same underlying problem
3. deal_ready matches, where both sides are in a position to transact now

Score calibration: overall_score is in [0,1]. Reserve scores above 0.75 for clearly strong and specific
connections. Anything below 0.60 means the meeting is of low value.`

const promptFooter = `Return a JSON array ordered from best to worst match. Each element:
{
  "candidate_index": <1-based candidate number>,
  "overall_score": <0.0-1.0>,
  "complementary_score": <0.0-1.0>,
  "match_type": "complementary" | "non_obvious" | "deal_ready",
  "explanation": "<2-3 sentences on why these two should meet, citing concrete mandates, products or amounts>",
  "shared_context": {
    "sectors": ["overlapping sectors"],
    "synergies": ["specific synergy points"],
    "action_items": ["topics or deals to discuss"]
  }
}

Return ONLY the JSON array.`

// BuildPrompt renders the ranking request for attendee and its candidates.
func BuildPrompt(attendee *models.Profile, candidates []retrieval.Candidate) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nTARGET ATTENDEE:\n")
	writeProfile(&b, attendee, "")

	b.WriteString("\nCANDIDATES:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "Candidate %d:\n", i+1)
		writeProfile(&b, c.Profile, "  ")
		fmt.Fprintf(&b, "  Vector Similarity: %.3f\n", c.Similarity)
	}

	b.WriteString("\n")
	b.WriteString(promptFooter)
	return b.String()
}

func writeProfile(b *strings.Builder, p *models.Profile, indent string) {
	line := func(label, value string) {
		fmt.Fprintf(b, "%s%s: %s\n", indent, label, value)
	}
	line("Name", p.Name)
	line("Title", p.Title)
	line("Company", p.Company)
	line("Ticket Type", p.TicketType.String())
	line("Goals", orDefault(p.Goals, "Not specified"))
	line("Interests", joinOrDefault(p.Interests, "Not specified"))
	line("Seeking", joinOrDefault(p.Seeking, "Not specified"))
	line("Deal Stage", orDefault(p.DealStage, "Not specified"))
	line("AI Summary", orDefault(p.Summary, "Not available"))
	line("Intent Tags", joinOrDefault(p.IntentTags, "Not classified"))
	line("Deal Readiness", fmt.Sprintf("%.2f", p.DealReadiness))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinOrDefault(values []string, def string) string {
	if len(values) == 0 {
		return def
	}
	return strings.Join(values, ", ")
}
