package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/matching/ranking"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type stubRetriever struct {
	candidates map[string][]retrieval.Candidate
}

func (s *stubRetriever) Retrieve(ctx context.Context, attendee *models.Profile, topK int, excluded []string) ([]retrieval.Candidate, error) {
	return s.candidates[attendee.ID], nil
}

func (s *stubRetriever) Warm(ctx context.Context, attendees []*models.Profile, topK int, excluded []string) int {
	return 0
}

func (s *stubRetriever) Invalidate(ctx context.Context, attendeeID string) error { return nil }

type stubRanker struct{}

func (stubRanker) Rank(ctx context.Context, attendee *models.Profile, candidates []retrieval.Candidate) []ranking.Entry {
	entries := make([]ranking.Entry, len(candidates))
	for i := range candidates {
		entries[i] = ranking.Entry{
			CandidateIndex:     i,
			OverallScore:       0.9,
			ComplementaryScore: 0.9,
			MatchType:          models.MatchComplementary,
			Explanation:        "Both build custody infrastructure.",
		}
	}
	return entries
}

var (
	pgProfileCols = []string{"id", "name", "email", "title", "company", "ticket_type", "interests", "goals",
		"seeking", "not_looking_for", "preferred_geographies", "deal_stage", "enriched_profile", "ai_summary",
		"intent_tags", "deal_readiness_score", "embedding", "enriched_at", "created_at"}
	pgMatchCols = []string{"id", "attendee_a_id", "attendee_b_id", "similarity_score", "complementary_score",
		"overall_score", "match_type", "explanation", "shared_context", "explanation_confidence", "status",
		"status_a", "status_b", "decline_reason", "meeting_time", "meeting_location", "met_at",
		"meeting_outcome", "satisfaction_score", "hidden_by_user", "created_at"}
)

func addPGProfile(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	return rows.AddRow(id, "Name "+id, id+"@example.com", "CEO", "Acme", "delegate", "{custody}",
		"meet investors", "{}", "{}", "{}", "", []byte(`{}`), "summary", "{deal_making}", 0.25, "[1,0]", nil,
		time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
}

// ==========================
// Regeneration over postgres
// ==========================

func TestEngine_GenerateAll_Postgres_FailedInsertRollsBackToSavepoint(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	retriever := &stubRetriever{candidates: map[string][]retrieval.Candidate{
		"a": {{Profile: &models.Profile{ID: "c"}, Similarity: 0.8}},
		"b": {{Profile: &models.Profile{ID: "d"}, Similarity: 0.8}},
	}}
	e := New(Config{TopK: 4}, store.NewPostgres(db), nil, retriever, stubRanker{}, nil, logger.NewTestLogger(t))

	mock.ExpectQuery(`SELECT attendee_id FROM users`).WillReturnRows(sqlmock.NewRows([]string{"attendee_id"}))
	mock.ExpectQuery(`FROM attendees ORDER BY created_at, id`).
		WillReturnRows(addPGProfile(addPGProfile(sqlmock.NewRows(pgProfileCols), "a"), "b"))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM matches`).WillReturnResult(sqlmock.NewResult(0, 7))

	// attendee a: the insert fails and only its savepoint is rolled back
	mock.ExpectExec(`SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM matches\s+WHERE \(attendee_a_id = \$1 AND attendee_b_id = \$2\)`).
		WithArgs("a", "c").WillReturnRows(sqlmock.NewRows(pgMatchCols))
	mock.ExpectExec(`INSERT INTO matches`).WillReturnError(errors.New("value too long for type character varying"))
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))

	// attendee b still persists in the same transaction
	mock.ExpectExec(`SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM matches\s+WHERE \(attendee_a_id = \$1 AND attendee_b_id = \$2\)`).
		WithArgs("b", "d").WillReturnRows(sqlmock.NewRows(pgMatchCols))
	mock.ExpectExec(`INSERT INTO matches`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_1`).WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	count, err := e.GenerateAll(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_GenerateForProfile_Postgres_ConcurrentPairIsSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	retriever := &stubRetriever{candidates: map[string][]retrieval.Candidate{
		"a": {{Profile: &models.Profile{ID: "b"}, Similarity: 0.8}},
	}}
	e := New(Config{TopK: 4}, store.NewPostgres(db), nil, retriever, stubRanker{}, nil, logger.NewTestLogger(t))

	mock.ExpectQuery(`FROM attendees WHERE id = \$1`).WithArgs("a").
		WillReturnRows(addPGProfile(sqlmock.NewRows(pgProfileCols), "a"))
	mock.ExpectQuery(`SELECT attendee_id FROM users`).WillReturnRows(sqlmock.NewRows([]string{"attendee_id"}))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM matches\s+WHERE \(attendee_a_id = \$1 AND attendee_b_id = \$2\)`).
		WithArgs("a", "b").WillReturnRows(sqlmock.NewRows(pgMatchCols))
	// the other side committed the pair after the lookup
	mock.ExpectExec(`INSERT INTO matches .* ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	created, err := e.GenerateForProfile(context.Background(), "a", 4, false)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
