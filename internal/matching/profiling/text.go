// internal/matching/profiling/text.go
package profiling

import (
	"encoding/json"
	"fmt"
	"strings"

	"event-matchmaker/internal/common/ai"
	"event-matchmaker/internal/models"
)

const notSpecified = "Not specified"

// IntentTaxonomy is the closed set of intent tags a profile can carry.
var IntentTaxonomy = []string{
	"deploying_capital",
	"raising_capital",
	"seeking_partnerships",
	"seeking_customers",
	"regulatory_engagement",
	"technology_evaluation",
	"deal_making",
	"knowledge_exchange",
	"co_investment",
	"talent_acquisition",
}

// DefaultIntent is used when classification fails or yields nothing usable.
const DefaultIntent = "knowledge_exchange"

var dealSignals = []string{"deploying_capital", "raising_capital", "deal_making", "seeking_customers"}

var taxonomySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(IntentTaxonomy))
	for _, t := range IntentTaxonomy {
		set[t] = struct{}{}
	}
	return set
}()

// CompositeText is the labelled profile text used as embedding input.
func CompositeText(p *models.Profile) string {
	parts := []string{
		"Name: " + p.Name,
		"Title: " + p.Title,
		"Company: " + p.Company,
		"Ticket Type: " + p.TicketType.String(),
	}
	if len(p.Interests) > 0 {
		parts = append(parts, "Interests: "+strings.Join(p.Interests, ", "))
	}
	if p.Goals != "" {
		parts = append(parts, "Goals: "+p.Goals)
	}
	if p.Summary != "" {
		parts = append(parts, "Profile Summary: "+p.Summary)
	}

	e := p.Enriched
	if e.LinkedInSummary != "" {
		parts = append(parts, "LinkedIn: "+e.LinkedInSummary)
	}
	if e.CompanyDescription != "" {
		parts = append(parts, "Company Info: "+e.CompanyDescription)
	}
	if e.RecentActivity != "" {
		parts = append(parts, "Recent Activity: "+e.RecentActivity)
	}
	if e.FundingInfo != "" {
		parts = append(parts, "Funding: "+e.FundingInfo)
	}
	return strings.Join(parts, "\n")
}

func summaryPrompt(p *models.Profile) string {
	enriched := "None available"
	if !p.Enriched.IsEmpty() {
		if data, err := json.Marshal(p.Enriched); err == nil {
			enriched = string(data)
		}
	}

	return fmt.Sprintf(`You write attendee briefs for a curated investor and builder conference.

Summarize this attendee in 2-3 sentences, third person. Cover their role and what their organization does,
what they want from the event, and how ready and able they are to make decisions. Name the concrete
mandate, product or thesis. Avoid generic phrasing.

Name: %s
Title: %s
Company: %s
Ticket Type: %s
Interests: %s
Goals: %s
Enriched data: %s`,
		p.Name, p.Title, p.Company, p.TicketType.String(), joinOr(p.Interests), orNotSpecified(p.Goals), enriched)
}

func intentPrompt(p *models.Profile) string {
	return fmt.Sprintf(`Classify the intents of this conference attendee.

Attendee: %s, %s at %s
Goals: %s
Interests: %s

Pick the 2-4 most relevant tags from this list:
%s

Return ONLY a JSON array of tag strings.`,
		p.Name, p.Title, p.Company, orNotSpecified(p.Goals), joinOr(p.Interests),
		"- "+strings.Join(IntentTaxonomy, "\n- "))
}

// ParseIntents keeps known tags, in order and without duplicates. ok is false when
// the response is not a JSON array or holds no known tag.
func ParseIntents(raw string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &items); err != nil {
		return nil, false
	}

	seen := make(map[string]struct{}, len(items))
	var tags []string
	for _, tag := range ai.CoerceStrings(items) {
		tag = models.NormalizeTag(tag)
		if _, known := taxonomySet[tag]; !known {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, len(tags) > 0
}

// DealReadiness is the share of deal-signal intents present in tags.
func DealReadiness(tags []string) float64 {
	present := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		present[models.NormalizeTag(t)] = struct{}{}
	}
	hits := 0
	for _, s := range dealSignals {
		if _, ok := present[s]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(dealSignals))
}

func joinOr(values []string) string {
	if len(values) == 0 {
		return notSpecified
	}
	return strings.Join(values, ", ")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}
