// internal/models/match.go
package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	StatusPending  MatchStatus = "pending"
	StatusAccepted MatchStatus = "accepted"
	StatusDeclined MatchStatus = "declined"
	StatusMet      MatchStatus = "met"
)

func ParseMatchStatus(s string) (MatchStatus, error) {
	switch st := MatchStatus(NormalizeTag(s)); st {
	case StatusPending, StatusAccepted, StatusDeclined, StatusMet:
		return st, nil
	default:
		return "", fmt.Errorf("unknown match status %q", s)
	}
}

type MatchType string

const (
	MatchComplementary MatchType = "complementary"
	MatchNonObvious    MatchType = "non_obvious"
	MatchDealReady     MatchType = "deal_ready"
)

// ParseMatchType maps unknown labels to complementary.
func ParseMatchType(s string) MatchType {
	switch mt := MatchType(NormalizeTag(s)); mt {
	case MatchNonObvious, MatchDealReady:
		return mt
	default:
		return MatchComplementary
	}
}

type SharedContext struct {
	Sectors     []string `json:"sectors,omitempty"`
	Synergies   []string `json:"synergies,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`
}

// Match links an unordered pair of profiles. AttendeeAID/AttendeeBID fix an arbitrary order.
type Match struct {
	ID                 string        `json:"id"`
	AttendeeAID        string        `json:"attendee_a_id"`
	AttendeeBID        string        `json:"attendee_b_id"`
	SimilarityScore    float64       `json:"similarity_score"`
	ComplementaryScore float64       `json:"complementary_score"`
	OverallScore       float64       `json:"overall_score"`
	MatchType          MatchType     `json:"match_type"`
	Explanation        string        `json:"explanation"`
	SharedContext      SharedContext `json:"shared_context"`
	Confidence         *float64      `json:"explanation_confidence,omitempty"`

	Status  MatchStatus `json:"status"`
	StatusA MatchStatus `json:"status_a"`
	StatusB MatchStatus `json:"status_b"`

	DeclineReason     *string    `json:"decline_reason,omitempty"`
	MeetingTime       *time.Time `json:"meeting_time,omitempty"`
	MeetingLocation   *string    `json:"meeting_location,omitempty"`
	MetAt             *time.Time `json:"met_at,omitempty"`
	MeetingOutcome    *string    `json:"meeting_outcome,omitempty"`
	SatisfactionScore *float64   `json:"satisfaction_score,omitempty"`
	HiddenByUser      bool       `json:"hidden_by_user"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Side identifies which party of a match an actor is linked to.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

func (m *Match) SideOf(profileID string) Side {
	switch {
	case profileID == "":
		return SideNone
	case profileID == m.AttendeeAID:
		return SideA
	case profileID == m.AttendeeBID:
		return SideB
	default:
		return SideNone
	}
}

func (m *Match) Involves(profileID string) bool {
	return m.SideOf(profileID) != SideNone
}

// Other returns the counterpart of profileID, or "" if profileID is not a party.
func (m *Match) Other(profileID string) string {
	switch m.SideOf(profileID) {
	case SideA:
		return m.AttendeeBID
	case SideB:
		return m.AttendeeAID
	default:
		return ""
	}
}

// SamePair reports whether the match links a and b in either order.
func (m *Match) SamePair(a, b string) bool {
	return (m.AttendeeAID == a && m.AttendeeBID == b) || (m.AttendeeAID == b && m.AttendeeBID == a)
}

// MatchView pairs a match with the other party, as seen by one attendee.
type MatchView struct {
	Match *Match   `json:"match"`
	Other *Profile `json:"other"`
}
