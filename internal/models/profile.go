// internal/models/profile.go
package models

import (
	"fmt"
	"strings"
	"time"
)

type TicketType string

const (
	TicketDelegate TicketType = "delegate"
	TicketSponsor  TicketType = "sponsor"
	TicketSpeaker  TicketType = "speaker"
	TicketVIP      TicketType = "vip"
)

// ParseTicketType accepts any casing; empty input maps to delegate.
func ParseTicketType(s string) (TicketType, error) {
	switch t := TicketType(NormalizeTag(s)); t {
	case "":
		return TicketDelegate, nil
	case TicketDelegate, TicketSponsor, TicketSpeaker, TicketVIP:
		return t, nil
	default:
		return "", fmt.Errorf("unknown ticket type %q", s)
	}
}

// String always yields the lowercase form used by matching logic.
func (t TicketType) String() string {
	return NormalizeTag(string(t))
}

// EnrichedProfile holds third-party context gathered about an attendee.
type EnrichedProfile struct {
	LinkedInSummary    string `json:"linkedin_summary,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	RecentActivity     string `json:"recent_activity,omitempty"`
	FundingInfo        string `json:"funding_info,omitempty"`
}

func (e EnrichedProfile) IsEmpty() bool {
	return e.LinkedInSummary == "" && e.CompanyDescription == "" && e.RecentActivity == "" && e.FundingInfo == ""
}

// Profile is an attendee's matching-relevant record.
// Embedding is either nil or exactly the provider's dimensionality.
type Profile struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Title                string          `json:"title"`
	Company              string          `json:"company"`
	TicketType           TicketType      `json:"ticket_type"`
	Interests            []string        `json:"interests"`
	Goals                string          `json:"goals"`
	Seeking              []string        `json:"seeking"`
	NotLookingFor        []string        `json:"not_looking_for"`
	PreferredGeographies []string        `json:"preferred_geographies"`
	DealStage            string          `json:"deal_stage"`
	Enriched             EnrichedProfile `json:"enriched_profile"`

	Summary       string     `json:"ai_summary"`
	IntentTags    []string   `json:"intent_tags"`
	DealReadiness float64    `json:"deal_readiness_score"`
	Embedding     []float32  `json:"-"`
	EnrichedAt    *time.Time `json:"enriched_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (p *Profile) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// ClearDerived drops summary, intents, readiness and embedding so the next run regenerates them.
func (p *Profile) ClearDerived() {
	p.Summary = ""
	p.IntentTags = nil
	p.DealReadiness = 0
	p.Embedding = nil
}

// Normalize lowercases categorical fields so downstream logic compares plain strings.
func (p *Profile) Normalize() {
	p.TicketType = TicketType(p.TicketType.String())
	p.DealStage = NormalizeTag(p.DealStage)
	p.Seeking = NormalizeTags(p.Seeking)
	p.NotLookingFor = NormalizeTags(p.NotLookingFor)
	p.PreferredGeographies = NormalizeTags(p.PreferredGeographies)
	p.IntentTags = NormalizeTags(p.IntentTags)
}

// MatchingFieldsChanged reports whether an edit touches text the embedding is built from.
func MatchingFieldsChanged(before, after *Profile) bool {
	if before.Goals != after.Goals || before.Title != after.Title || before.Company != after.Company {
		return true
	}
	if before.Enriched != after.Enriched {
		return true
	}
	return !sameStrings(before.Interests, after.Interests)
}

func NormalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTags lowercases, trims and drops empty entries, keeping order.
func NormalizeTags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := NormalizeTag(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
