// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"event-matchmaker/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pooled lib/pq connection.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Migrate creates the attendee, match and user tables when missing.
// The embedding column width is fixed by the provider's dimensionality.
func (c *PostgresClient) Migrate(ctx context.Context, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS attendees (
			id                    TEXT PRIMARY KEY,
			name                  TEXT NOT NULL,
			email                 TEXT NOT NULL DEFAULT '',
			title                 TEXT NOT NULL DEFAULT '',
			company               TEXT NOT NULL DEFAULT '',
			ticket_type           TEXT NOT NULL DEFAULT 'delegate',
			interests             TEXT[] NOT NULL DEFAULT '{}',
			goals                 TEXT NOT NULL DEFAULT '',
			seeking               TEXT[] NOT NULL DEFAULT '{}',
			not_looking_for       TEXT[] NOT NULL DEFAULT '{}',
			preferred_geographies TEXT[] NOT NULL DEFAULT '{}',
			deal_stage            TEXT NOT NULL DEFAULT '',
			enriched_profile      JSONB NOT NULL DEFAULT '{}',
			ai_summary            TEXT NOT NULL DEFAULT '',
			intent_tags           TEXT[] NOT NULL DEFAULT '{}',
			deal_readiness_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
			embedding             vector(%d),
			enriched_at           TIMESTAMPTZ,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimensions),
		`CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			email       TEXT NOT NULL,
			is_admin    BOOLEAN NOT NULL DEFAULT false,
			attendee_id TEXT REFERENCES attendees(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id                     TEXT PRIMARY KEY,
			attendee_a_id          TEXT NOT NULL REFERENCES attendees(id) ON DELETE CASCADE,
			attendee_b_id          TEXT NOT NULL REFERENCES attendees(id) ON DELETE CASCADE,
			similarity_score       DOUBLE PRECISION NOT NULL,
			complementary_score    DOUBLE PRECISION NOT NULL,
			overall_score          DOUBLE PRECISION NOT NULL,
			match_type             TEXT NOT NULL,
			explanation            TEXT NOT NULL DEFAULT '',
			shared_context         JSONB NOT NULL DEFAULT '{}',
			explanation_confidence DOUBLE PRECISION,
			status                 TEXT NOT NULL DEFAULT 'pending',
			status_a               TEXT NOT NULL DEFAULT 'pending',
			status_b               TEXT NOT NULL DEFAULT 'pending',
			decline_reason         TEXT,
			meeting_time           TIMESTAMPTZ,
			meeting_location       TEXT,
			met_at                 TIMESTAMPTZ,
			meeting_outcome        TEXT,
			satisfaction_score     DOUBLE PRECISION,
			hidden_by_user         BOOLEAN NOT NULL DEFAULT false,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS matches_attendee_a_idx ON matches (attendee_a_id)`,
		`CREATE INDEX IF NOT EXISTS matches_attendee_b_idx ON matches (attendee_b_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS matches_pair_key ON matches
			(LEAST(attendee_a_id, attendee_b_id), GREATEST(attendee_a_id, attendee_b_id))`,
		`CREATE INDEX IF NOT EXISTS attendees_embedding_idx ON attendees USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
