package ranking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockGenerator struct {
	GenerateContentFunc func(ctx context.Context, prompt string) (string, error)
	prompts             []string
}

func (m *MockGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.GenerateContentFunc(ctx, prompt)
}

func respond(body string, err error) *MockGenerator {
	return &MockGenerator{GenerateContentFunc: func(ctx context.Context, prompt string) (string, error) {
		return body, err
	}}
}

// ==========================
// Test Helper Functions
// ==========================

func attendee() *models.Profile {
	return &models.Profile{
		ID:         "amara",
		Name:       "Amara Okafor",
		Title:      "Director of Digital Assets",
		Company:    "Abu Dhabi Sovereign Fund",
		TicketType: models.TicketVIP,
		Goals:      "Deploy $200M into custody infrastructure",
		Interests:  []string{"custody", "tokenization"},
		IntentTags: []string{"deploying_capital"},
	}
}

func candidates() []retrieval.Candidate {
	return []retrieval.Candidate{
		{Profile: &models.Profile{ID: "marcus", Name: "Marcus Chen", Company: "VaultBridge"}, Similarity: 0.82},
		{Profile: &models.Profile{ID: "elena", Name: "Dr. Elena Vasquez", Company: "Meridian VC"}, Similarity: 0.71},
	}
}

// ==========================
// Rank Tests
// ==========================

func TestRanker_Rank(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		generator      *MockGenerator
		validateOutput func(t *testing.T, entries []Entry)
	}{
		{
			name:   "fenced provider response",
			config: Config{ConfidenceEnabled: true},
			generator: respond("```json\n"+`[
				{"candidate_index": 1, "overall_score": 0.91, "complementary_score": 0.88, "match_type": "complementary",
				 "explanation": "VaultBridge is raising to build the custody rails the fund needs.",
				 "shared_context": {"sectors": ["Custody"], "synergies": ["institutional custody"], "action_items": ["custody mandate"]}},
				{"candidate_index": 2, "overall_score": "0.64", "match_type": "strategic", "explanation": "Co-investment."}
			]`+"\n```", nil),
			validateOutput: func(t *testing.T, entries []Entry) {
				require.Len(t, entries, 2)
				assert.Equal(t, 0, entries[0].CandidateIndex)
				assert.Equal(t, 0.91, entries[0].OverallScore)
				assert.Equal(t, []string{"Custody"}, entries[0].SharedContext.Sectors)
				assert.False(t, entries[0].Fallback)
				require.NotNil(t, entries[0].Confidence)

				assert.Equal(t, 1, entries[1].CandidateIndex)
				assert.Equal(t, 0.64, entries[1].OverallScore)
				assert.Equal(t, 0.71, entries[1].ComplementaryScore, "absent score defaults to similarity")
				assert.Equal(t, models.MatchComplementary, entries[1].MatchType, "unknown type coerces")
			},
		},
		{
			name:   "provider confidence kept when estimation is off",
			config: Config{},
			generator: respond(`[{"candidate_index": 1, "overall_score": 0.8, "complementary_score": 0.7,
				"match_type": "deal_ready", "explanation": "x", "confidence": 1.7}]`, nil),
			validateOutput: func(t *testing.T, entries []Entry) {
				require.Len(t, entries, 1)
				require.NotNil(t, entries[0].Confidence)
				assert.Equal(t, 1.0, *entries[0].Confidence)
				assert.Equal(t, models.MatchDealReady, entries[0].MatchType)
			},
		},
		{
			name:      "out of range index defaults scores to zero",
			generator: respond(`[{"candidate_index": 9, "explanation": "ghost"}]`, nil),
			validateOutput: func(t *testing.T, entries []Entry) {
				require.Len(t, entries, 1)
				assert.Equal(t, 8, entries[0].CandidateIndex)
				assert.Zero(t, entries[0].OverallScore)
			},
		},
		{
			name:      "provider error falls back",
			generator: respond("", errors.New("503 unavailable")),
			validateOutput: func(t *testing.T, entries []Entry) {
				assertFallback(t, entries)
			},
		},
		{
			name:      "prose response falls back",
			generator: respond("I would pair Amara with Marcus.", nil),
			validateOutput: func(t *testing.T, entries []Entry) {
				assertFallback(t, entries)
			},
		},
		{
			name:      "empty array falls back",
			generator: respond("[]", nil),
			validateOutput: func(t *testing.T, entries []Entry) {
				assertFallback(t, entries)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRanker(tt.generator, tt.config, nil, logger.NewTestLogger(t))
			tt.validateOutput(t, r.Rank(context.Background(), attendee(), candidates()))
		})
	}
}

func assertFallback(t *testing.T, entries []Entry) {
	t.Helper()
	require.Len(t, entries, 2)
	for i, e := range entries {
		assert.True(t, e.Fallback)
		assert.Equal(t, i, e.CandidateIndex)
		assert.Equal(t, models.MatchComplementary, e.MatchType)
		assert.Equal(t, FallbackExplanation, e.Explanation)
		assert.Nil(t, e.Confidence)
		assert.Equal(t, candidates()[i].Similarity, e.OverallScore)
	}
}

func TestRanker_Rank_NoCandidates(t *testing.T) {
	gen := respond("[]", nil)
	r := NewRanker(gen, Config{}, nil, logger.NewNoOpLogger())

	assert.Empty(t, r.Rank(context.Background(), attendee(), nil))
	assert.Empty(t, gen.prompts, "provider must not be called")
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(attendee(), candidates())

	assert.Contains(t, prompt, "Name: Amara Okafor")
	assert.Contains(t, prompt, "Interests: custody, tokenization")
	assert.Contains(t, prompt, "Candidate 1:\n  Name: Marcus Chen")
	assert.Contains(t, prompt, "Candidate 2:\n  Name: Dr. Elena Vasquez")
	assert.Contains(t, prompt, "Vector Similarity: 0.820")
	assert.Contains(t, prompt, "above 0.75")
	assert.Contains(t, prompt, "below 0.60")
	assert.True(t, strings.HasSuffix(prompt, "Return ONLY the JSON array."))
}

// ==========================
// Rerank Tests
// ==========================

func TestRerank(t *testing.T) {
	tests := []struct {
		name           string
		entries        []Entry
		validateOutput func(t *testing.T, out []Entry)
	}{
		{
			name: "second entry with the same topic loses exactly 0.05",
			entries: []Entry{
				{CandidateIndex: 0, OverallScore: 0.80, SharedContext: models.SharedContext{Sectors: []string{"Custody"}}},
				{CandidateIndex: 1, OverallScore: 0.78, SharedContext: models.SharedContext{Sectors: []string{"custody "}}},
			},
			validateOutput: func(t *testing.T, out []Entry) {
				assert.InDelta(t, 0.80, out[0].OverallScore, 1e-9)
				assert.InDelta(t, 0.73, out[1].OverallScore, 1e-9)
			},
		},
		{
			name: "non obvious gains exactly 0.03 and resorts",
			entries: []Entry{
				{CandidateIndex: 0, OverallScore: 0.70, SharedContext: models.SharedContext{Sectors: []string{"payments"}}},
				{CandidateIndex: 1, OverallScore: 0.69, MatchType: models.MatchNonObvious,
					SharedContext: models.SharedContext{Synergies: []string{"settlement"}}},
			},
			validateOutput: func(t *testing.T, out []Entry) {
				assert.Equal(t, 1, out[0].CandidateIndex)
				assert.InDelta(t, 0.72, out[0].OverallScore, 1e-9)
				assert.Equal(t, 0, out[1].CandidateIndex)
			},
		},
		{
			name: "entries without context share the unknown topic",
			entries: []Entry{
				{CandidateIndex: 0, OverallScore: 0.65},
				{CandidateIndex: 1, OverallScore: 0.64},
			},
			validateOutput: func(t *testing.T, out []Entry) {
				assert.InDelta(t, 0.59, out[1].OverallScore, 1e-9)
			},
		},
		{
			name: "scores are clamped",
			entries: []Entry{
				{CandidateIndex: 0, OverallScore: 0.99, MatchType: models.MatchNonObvious},
				{CandidateIndex: 1, OverallScore: 0.02},
			},
			validateOutput: func(t *testing.T, out []Entry) {
				assert.Equal(t, 1.0, out[0].OverallScore)
				assert.Equal(t, 0.0, out[1].OverallScore)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]Entry(nil), tt.entries...)
			out := Rerank(tt.entries)

			assert.Equal(t, before, tt.entries, "input is not mutated")
			for i := 1; i < len(out); i++ {
				assert.GreaterOrEqual(t, out[i-1].OverallScore, out[i].OverallScore)
			}
			tt.validateOutput(t, out)
		})
	}
}

func TestPrimaryTopic(t *testing.T) {
	assert.Equal(t, "custody", PrimaryTopic(models.SharedContext{Sectors: []string{"Custody", "Payments"}}))
	assert.Equal(t, "settlement", PrimaryTopic(models.SharedContext{Synergies: []string{"SETTLEMENT"}}))
	assert.Equal(t, "unknown", PrimaryTopic(models.SharedContext{}))
}

// ==========================
// Confidence Tests
// ==========================

func TestConfidence(t *testing.T) {
	detailed := Entry{
		OverallScore:       0.82,
		ComplementaryScore: 0.85,
		Explanation: strings.Repeat("VaultBridge's MPC custody stack fits the fund's mandate. ", 3),
		SharedContext: models.SharedContext{ActionItems: []string{"custody RFP", "Series B terms", "pilot scope"}},
	}
	assert.Greater(t, Confidence(detailed), 0.6)
	assert.InDelta(t, 0.55*0.82+0.25*0.85+0.08+0.08, Confidence(detailed), 1e-9)

	sparse := Entry{OverallScore: 0.5, ComplementaryScore: 0.4, Explanation: "short"}
	assert.InDelta(t, 0.55*0.5+0.25*0.4+0.03, Confidence(sparse), 1e-9)

	for _, e := range []Entry{
		{},
		{OverallScore: 1, ComplementaryScore: 1, Explanation: strings.Repeat("x", 500),
			SharedContext: models.SharedContext{ActionItems: make([]string, 10)}},
	} {
		c := Confidence(e)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}
