// internal/matching/eligibility/eligibility.go
package eligibility

import (
	"strings"

	"event-matchmaker/internal/models"
)

// Reason names the rule that excluded a pair. Empty means eligible.
type Reason string

const (
	Eligible          Reason = ""
	ReasonTicketClass Reason = "ticket_class"
	ReasonGeography   Reason = "geography"
	ReasonDealStage   Reason = "deal_stage"
	ReasonSeeking     Reason = "seeking"
)

var wildcardStages = map[string]struct{}{
	"any":    {},
	"all":    {},
	"global": {},
}

// IsEligible reports whether candidate may be matched with attendee.
func IsEligible(attendee, candidate *models.Profile) bool {
	return Check(attendee, candidate) == Eligible
}

// Check applies the rules in order and returns the first one that fails.
func Check(attendee, candidate *models.Profile) Reason {
	if excludesTicket(attendee, candidate) || excludesTicket(candidate, attendee) {
		return ReasonTicketClass
	}
	if !geographyOverlaps(attendee.PreferredGeographies, candidate.PreferredGeographies) {
		return ReasonGeography
	}
	if !StagesCompatible(attendee.DealStage, candidate.DealStage) {
		return ReasonDealStage
	}
	if !seekingSatisfied(attendee, candidate) || !seekingSatisfied(candidate, attendee) {
		return ReasonSeeking
	}
	return Eligible
}

func excludesTicket(owner, other *models.Profile) bool {
	ticket := other.TicketType.String()
	if ticket == "" {
		return false
	}
	for _, nl := range owner.NotLookingFor {
		if models.NormalizeTag(nl) == ticket {
			return true
		}
	}
	return false
}

// geographyOverlaps is permissive when either side has no preference.
func geographyOverlaps(a, b []string) bool {
	a = models.NormalizeTags(a)
	b = models.NormalizeTags(b)
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	return intersects(toSet(a), b)
}

// StagesCompatible implements the deal-stage table. A "policy" stage pairs only
// with an unset stage, an equal stage or a wildcard.
func StagesCompatible(a, b string) bool {
	a = models.NormalizeTag(a)
	b = models.NormalizeTag(b)

	if a == "" || b == "" || a == b {
		return true
	}
	if isWildcard(a) || isWildcard(b) {
		return true
	}

	aSeries := strings.Contains(a, "series")
	bSeries := strings.Contains(b, "series")
	if aSeries && bSeries {
		return true
	}
	if (a == "growth" && bSeries) || (b == "growth" && aSeries) {
		return true
	}
	return false
}

func isWildcard(stage string) bool {
	_, ok := wildcardStages[stage]
	return ok
}

// SignalSet is a profile's intents plus its own ticket class and deal stage.
func SignalSet(p *models.Profile) map[string]struct{} {
	signals := toSet(models.NormalizeTags(p.IntentTags))
	if t := p.TicketType.String(); t != "" {
		signals[t] = struct{}{}
	}
	if s := models.NormalizeTag(p.DealStage); s != "" {
		signals[s] = struct{}{}
	}
	return signals
}

func seekingSatisfied(seeker, other *models.Profile) bool {
	seeking := models.NormalizeTags(seeker.Seeking)
	if len(seeking) == 0 {
		return true
	}
	return intersects(SignalSet(other), seeking)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func intersects(set map[string]struct{}, values []string) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
