// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/models"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const profileColumns = `id, name, email, title, company, ticket_type, interests, goals, seeking,
	not_looking_for, preferred_geographies, deal_stage, enriched_profile, ai_summary, intent_tags,
	deal_readiness_score, embedding, enriched_at, created_at`

const matchColumns = `id, attendee_a_id, attendee_b_id, similarity_score, complementary_score,
	overall_score, match_type, explanation, shared_context, explanation_confidence, status, status_a,
	status_b, decline_reason, meeting_time, meeting_location, met_at, meeting_outcome,
	satisfaction_score, hidden_by_user, created_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Postgres is the lib/pq backed Store. Embeddings live in a pgvector column.
type Postgres struct {
	db    *sql.DB
	q     querier
	depth int
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

func (s *Postgres) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.db == nil {
		return s.withSavepoint(ctx, fn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin transaction", err)
	}

	if err := fn(&Postgres{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit transaction", err)
	}
	return nil
}

// withSavepoint nests fn inside the open transaction. A failed statement aborts the whole
// transaction in postgres, so fn's failure rolls back to the savepoint instead.
func (s *Postgres) withSavepoint(ctx context.Context, fn func(tx Store) error) error {
	name := fmt.Sprintf("sp_%d", s.depth+1)
	if _, err := s.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return apperrors.NewDatabaseError("savepoint", err)
	}

	if err := fn(&Postgres{q: s.q, depth: s.depth + 1}); err != nil {
		if _, rbErr := s.q.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}

	if _, err := s.q.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return apperrors.NewDatabaseError("release savepoint", err)
	}
	return nil
}

// ==========================
// Profiles
// ==========================

func (s *Postgres) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM attendees WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("profile", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get profile", err)
	}
	return p, nil
}

func (s *Postgres) GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.q.QueryContext(ctx, `SELECT `+profileColumns+` FROM attendees WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, apperrors.NewDatabaseError("get profiles", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.Profile, len(ids))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan profile", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("get profiles", err)
	}

	out := make([]*models.Profile, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Postgres) ListProfiles(ctx context.Context) ([]*models.Profile, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+profileColumns+` FROM attendees ORDER BY created_at, id`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list profiles", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan profile", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list profiles", err)
	}
	return out, nil
}

func (s *Postgres) CreateProfile(ctx context.Context, p *models.Profile) error {
	enriched, err := json.Marshal(p.Enriched)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err = s.q.ExecContext(ctx, `INSERT INTO attendees (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		p.ID, p.Name, p.Email, p.Title, p.Company, p.TicketType.String(), pq.Array(p.Interests), p.Goals,
		pq.Array(p.Seeking), pq.Array(p.NotLookingFor), pq.Array(p.PreferredGeographies), p.DealStage,
		enriched, p.Summary, pq.Array(p.IntentTags), p.DealReadiness, vectorArg(p.Embedding),
		p.EnrichedAt, p.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create profile", err)
	}
	return nil
}

func (s *Postgres) UpdateProfile(ctx context.Context, p *models.Profile) error {
	enriched, err := json.Marshal(p.Enriched)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	res, err := s.q.ExecContext(ctx, `UPDATE attendees SET
		name = $2, email = $3, title = $4, company = $5, ticket_type = $6, interests = $7, goals = $8,
		seeking = $9, not_looking_for = $10, preferred_geographies = $11, deal_stage = $12,
		enriched_profile = $13, ai_summary = $14, intent_tags = $15, deal_readiness_score = $16,
		embedding = $17, enriched_at = $18
		WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Title, p.Company, p.TicketType.String(), pq.Array(p.Interests), p.Goals,
		pq.Array(p.Seeking), pq.Array(p.NotLookingFor), pq.Array(p.PreferredGeographies), p.DealStage,
		enriched, p.Summary, pq.Array(p.IntentTags), p.DealReadiness, vectorArg(p.Embedding), p.EnrichedAt)
	if err != nil {
		return apperrors.NewDatabaseError("update profile", err)
	}
	return requireAffected(res, "profile", p.ID)
}

func (s *Postgres) SaveProfileDerived(ctx context.Context, p *models.Profile) error {
	res, err := s.q.ExecContext(ctx, `UPDATE attendees SET
		ai_summary = $2, intent_tags = $3, deal_readiness_score = $4, embedding = $5
		WHERE id = $1`,
		p.ID, p.Summary, pq.Array(p.IntentTags), p.DealReadiness, vectorArg(p.Embedding))
	if err != nil {
		return apperrors.NewDatabaseError("save derived profile fields", err)
	}
	return requireAffected(res, "profile", p.ID)
}

func (s *Postgres) OrganizerProfileIDs(ctx context.Context, emails []string) ([]string, error) {
	lowered := make([]string, 0, len(emails))
	for _, e := range emails {
		if e = models.NormalizeTag(e); e != "" {
			lowered = append(lowered, e)
		}
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT attendee_id FROM users WHERE is_admin AND attendee_id IS NOT NULL
		UNION
		SELECT id FROM attendees WHERE lower(email) = ANY($1)`, pq.Array(lowered))
	if err != nil {
		return nil, apperrors.NewDatabaseError("list organizers", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDatabaseError("scan organizer", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list organizers", err)
	}
	return ids, nil
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var (
		p          models.Profile
		ticket     string
		enriched   []byte
		embedding  *pgvector.Vector
		enrichedAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Title, &p.Company, &ticket, pq.Array(&p.Interests),
		&p.Goals, pq.Array(&p.Seeking), pq.Array(&p.NotLookingFor), pq.Array(&p.PreferredGeographies),
		&p.DealStage, &enriched, &p.Summary, pq.Array(&p.IntentTags), &p.DealReadiness, &embedding,
		&enrichedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.TicketType = models.TicketType(ticket)
	if len(enriched) > 0 {
		if err := json.Unmarshal(enriched, &p.Enriched); err != nil {
			return nil, fmt.Errorf("decode enriched_profile: %w", err)
		}
	}
	if embedding != nil {
		p.Embedding = embedding.Slice()
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		p.EnrichedAt = &t
	}
	p.Normalize()
	return &p, nil
}

func vectorArg(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// ==========================
// Matches
// ==========================

func (s *Postgres) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("match", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get match", err)
	}
	return m, nil
}

func (s *Postgres) ListMatches(ctx context.Context) ([]*models.Match, error) {
	return s.queryMatches(ctx, "list matches",
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at, id`)
}

func (s *Postgres) ListMatchesForProfile(ctx context.Context, profileID string, includeHidden bool) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE (attendee_a_id = $1 OR attendee_b_id = $1)`
	if !includeHidden {
		query += ` AND NOT hidden_by_user`
	}
	query += ` ORDER BY overall_score DESC, id`
	return s.queryMatches(ctx, "list matches for profile", query, profileID)
}

func (s *Postgres) FindMatchBetween(ctx context.Context, a, b string) (*models.Match, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE (attendee_a_id = $1 AND attendee_b_id = $2) OR (attendee_a_id = $2 AND attendee_b_id = $1)
		LIMIT 1`, a, b)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find match", err)
	}
	return m, nil
}

func (s *Postgres) InsertMatch(ctx context.Context, m *models.Match) error {
	shared, err := json.Marshal(m.SharedContext)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	res, err := s.q.ExecContext(ctx, `INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT DO NOTHING`,
		m.ID, m.AttendeeAID, m.AttendeeBID, m.SimilarityScore, m.ComplementaryScore, m.OverallScore,
		string(m.MatchType), m.Explanation, shared, m.Confidence, string(m.Status), string(m.StatusA),
		string(m.StatusB), m.DeclineReason, m.MeetingTime, m.MeetingLocation, m.MetAt, m.MeetingOutcome,
		m.SatisfactionScore, m.HiddenByUser, m.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("insert match", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicatePair
	}
	return nil
}

func (s *Postgres) UpdateMatch(ctx context.Context, m *models.Match) error {
	res, err := s.q.ExecContext(ctx, `UPDATE matches SET
		status = $2, status_a = $3, status_b = $4, decline_reason = $5, meeting_time = $6,
		meeting_location = $7, met_at = $8, meeting_outcome = $9, satisfaction_score = $10,
		hidden_by_user = $11
		WHERE id = $1`,
		m.ID, string(m.Status), string(m.StatusA), string(m.StatusB), m.DeclineReason, m.MeetingTime,
		m.MeetingLocation, m.MetAt, m.MeetingOutcome, m.SatisfactionScore, m.HiddenByUser)
	if err != nil {
		return apperrors.NewDatabaseError("update match", err)
	}
	return requireAffected(res, "match", m.ID)
}

func (s *Postgres) DeleteAllMatches(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM matches`)
	if err != nil {
		return 0, apperrors.NewDatabaseError("delete matches", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Postgres) DeleteMatchesForProfile(ctx context.Context, profileID string) (int64, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM matches WHERE attendee_a_id = $1 OR attendee_b_id = $1`, profileID)
	if err != nil {
		return 0, apperrors.NewDatabaseError("delete matches for profile", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Postgres) queryMatches(ctx context.Context, op, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseError("scan match", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(op, err)
	}
	return out, nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m                              models.Match
		matchType, st, stA, stB        string
		shared                         []byte
		confidence, satisfaction       sql.NullFloat64
		declineReason, location, outcm sql.NullString
		meetingTime, metAt             sql.NullTime
	)

	err := row.Scan(&m.ID, &m.AttendeeAID, &m.AttendeeBID, &m.SimilarityScore, &m.ComplementaryScore,
		&m.OverallScore, &matchType, &m.Explanation, &shared, &confidence, &st, &stA, &stB,
		&declineReason, &meetingTime, &location, &metAt, &outcm, &satisfaction, &m.HiddenByUser,
		&m.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.MatchType = models.ParseMatchType(matchType)
	m.Status = models.MatchStatus(strings.ToLower(st))
	m.StatusA = models.MatchStatus(strings.ToLower(stA))
	m.StatusB = models.MatchStatus(strings.ToLower(stB))
	if len(shared) > 0 {
		if err := json.Unmarshal(shared, &m.SharedContext); err != nil {
			return nil, fmt.Errorf("decode shared_context: %w", err)
		}
	}
	m.Confidence = floatPtr(confidence)
	m.SatisfactionScore = floatPtr(satisfaction)
	m.DeclineReason = stringPtr(declineReason)
	m.MeetingLocation = stringPtr(location)
	m.MeetingOutcome = stringPtr(outcm)
	m.MeetingTime = timePtr(meetingTime)
	m.MetAt = timePtr(metAt)
	return &m, nil
}

func requireAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(resource, id)
	}
	return nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
