package engine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"event-matchmaker/internal/matching/ranking"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func policyFixture(t *testing.T) (*store.Memory, *models.Profile, []retrieval.Candidate) {
	mem := store.NewMemory()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, mem.CreateProfile(ctx, &models.Profile{ID: id, Name: id}))
	}
	attendee, err := mem.GetProfile(ctx, "a")
	require.NoError(t, err)

	return mem, attendee, []retrieval.Candidate{
		{Profile: &models.Profile{ID: "b"}, Similarity: 0.74},
		{Profile: &models.Profile{ID: "c"}, Similarity: 0.55},
	}
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// ==========================
// Persist Tests
// ==========================

func TestPolicy_Persist(t *testing.T) {
	tests := []struct {
		name           string
		entries        []ranking.Entry
		validateOutput func(t *testing.T, created []*models.Match)
	}{
		{
			name: "copies entry fields",
			entries: []ranking.Entry{{
				CandidateIndex: 0, OverallScore: 0.81, ComplementaryScore: 0.9, MatchType: models.MatchDealReady,
				Explanation: "Both are ready to transact.", SharedContext: models.SharedContext{Sectors: []string{"custody"}},
			}},
			validateOutput: func(t *testing.T, created []*models.Match) {
				require.Len(t, created, 1)
				m := created[0]
				assert.NotEmpty(t, m.ID)
				assert.Equal(t, "a", m.AttendeeAID)
				assert.Equal(t, "b", m.AttendeeBID)
				assert.Equal(t, 0.74, m.SimilarityScore)
				assert.Equal(t, 0.81, m.OverallScore)
				assert.Equal(t, models.MatchDealReady, m.MatchType)
				assert.Equal(t, models.StatusPending, m.Status)
				assert.Equal(t, models.StatusPending, m.StatusA)
				assert.Equal(t, models.StatusPending, m.StatusB)
				assert.Equal(t, fixedNow, m.CreatedAt)
			},
		},
		{
			name: "absent scores default to similarity",
			entries: []ranking.Entry{{
				CandidateIndex: 0, OverallScore: math.NaN(), ComplementaryScore: math.NaN(), MatchType: models.MatchComplementary,
			}},
			validateOutput: func(t *testing.T, created []*models.Match) {
				require.Len(t, created, 1)
				assert.Equal(t, 0.74, created[0].OverallScore)
				assert.Equal(t, 0.74, created[0].ComplementaryScore)
			},
		},
		{
			name: "out of range index is dropped",
			entries: []ranking.Entry{
				{CandidateIndex: 5, OverallScore: 0.9},
				{CandidateIndex: -1, OverallScore: 0.9},
			},
			validateOutput: func(t *testing.T, created []*models.Match) {
				assert.Empty(t, created)
			},
		},
		{
			name: "below threshold is dropped",
			entries: []ranking.Entry{
				{CandidateIndex: 0, OverallScore: 0.59},
				{CandidateIndex: 1, OverallScore: 0.60},
			},
			validateOutput: func(t *testing.T, created []*models.Match) {
				require.Len(t, created, 1)
				assert.Equal(t, "c", created[0].AttendeeBID)
			},
		},
		{
			name: "repeated candidate persists once",
			entries: []ranking.Entry{
				{CandidateIndex: 0, OverallScore: 0.9},
				{CandidateIndex: 0, OverallScore: 0.8},
			},
			validateOutput: func(t *testing.T, created []*models.Match) {
				require.Len(t, created, 1)
				assert.Equal(t, 0.9, created[0].OverallScore)
			},
		},
		{
			name:    "fallback entries below threshold are dropped",
			entries: ranking.Fallback([]retrieval.Candidate{{Profile: &models.Profile{ID: "b"}, Similarity: 0.74}, {Profile: &models.Profile{ID: "c"}, Similarity: 0.55}}),
			validateOutput: func(t *testing.T, created []*models.Match) {
				require.Len(t, created, 1)
				assert.Equal(t, created[0].SimilarityScore, created[0].OverallScore)
				assert.Equal(t, ranking.FallbackExplanation, created[0].Explanation)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, attendee, candidates := policyFixture(t)
			policy := Policy{MinOverallScore: DefaultMinOverallScore, Now: func() time.Time { return fixedNow }}

			created, err := policy.Persist(context.Background(), mem, attendee, candidates, tt.entries)
			require.NoError(t, err)
			tt.validateOutput(t, created)

			stored, err := mem.ListMatches(context.Background())
			require.NoError(t, err)
			assert.Len(t, stored, len(created))
		})
	}
}

func TestPolicy_Persist_SkipsExistingPairInEitherOrder(t *testing.T) {
	mem, attendee, candidates := policyFixture(t)
	ctx := context.Background()
	require.NoError(t, mem.InsertMatch(ctx, &models.Match{ID: "m1", AttendeeAID: "b", AttendeeBID: "a", OverallScore: 0.7}))

	created, err := Policy{}.Persist(ctx, mem, attendee, candidates, []ranking.Entry{{CandidateIndex: 0, OverallScore: 0.95}})
	require.NoError(t, err)
	assert.Empty(t, created)

	stored, err := mem.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "m1", stored[0].ID)
}

// failingInsertStore rejects inserts for the attendees in failFor, or for everyone when it is empty.
type failingInsertStore struct {
	*store.Memory
	failFor map[string]bool
}

func (f *failingInsertStore) InsertMatch(ctx context.Context, m *models.Match) error {
	if len(f.failFor) == 0 || f.failFor[m.AttendeeAID] {
		return errors.New("disk full")
	}
	return f.Memory.InsertMatch(ctx, m)
}

func (f *failingInsertStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Memory.WithTx(ctx, func(tx store.Store) error {
		return fn(&failingInsertStore{Memory: tx.(*store.Memory), failFor: f.failFor})
	})
}

// duplicateOnInsertStore hides existing matches from the lookup, as a concurrent
// uncommitted insert would, so only the pair constraint catches the duplicate.
type duplicateOnInsertStore struct {
	*store.Memory
}

func (d *duplicateOnInsertStore) FindMatchBetween(ctx context.Context, a, b string) (*models.Match, error) {
	return nil, nil
}

func TestPolicy_Persist_PairConstraintSkipsDuplicate(t *testing.T) {
	mem, attendee, candidates := policyFixture(t)
	ctx := context.Background()
	require.NoError(t, mem.InsertMatch(ctx, &models.Match{ID: "m1", AttendeeAID: "b", AttendeeBID: "a", OverallScore: 0.7}))

	created, err := Policy{}.Persist(ctx, &duplicateOnInsertStore{mem}, attendee, candidates,
		[]ranking.Entry{{CandidateIndex: 0, OverallScore: 0.95}})
	require.NoError(t, err)
	assert.Empty(t, created)

	stored, err := mem.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "m1", stored[0].ID)
}

func TestPolicy_Persist_InsertError(t *testing.T) {
	mem, attendee, candidates := policyFixture(t)

	_, err := Policy{}.Persist(context.Background(), &failingInsertStore{Memory: mem}, attendee, candidates,
		[]ranking.Entry{{CandidateIndex: 0, OverallScore: 0.9}})
	assert.Error(t, err)
}
