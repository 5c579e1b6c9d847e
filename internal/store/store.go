// internal/store/store.go
package store

import (
	"context"
	"errors"

	"event-matchmaker/internal/models"
)

// ErrDuplicatePair is returned by InsertMatch when the unordered pair already has a match.
var ErrDuplicatePair = errors.New("match already exists for this pair")

// Store persists profiles and matches. Lookups of a missing id return a
// NOT_FOUND StandardError.
type Store interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	// GetProfiles returns the profiles found, in the order of ids. Missing ids are skipped.
	GetProfiles(ctx context.Context, ids []string) ([]*models.Profile, error)
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	UpdateProfile(ctx context.Context, p *models.Profile) error
	// SaveProfileDerived writes summary, intents, readiness and embedding only.
	SaveProfileDerived(ctx context.Context, p *models.Profile) error
	// OrganizerProfileIDs lists profiles linked to admin users or carrying one of emails.
	OrganizerProfileIDs(ctx context.Context, emails []string) ([]string, error)

	GetMatch(ctx context.Context, id string) (*models.Match, error)
	ListMatches(ctx context.Context) ([]*models.Match, error)
	ListMatchesForProfile(ctx context.Context, profileID string, includeHidden bool) ([]*models.Match, error)
	// FindMatchBetween checks both orderings. It returns nil, nil when no match exists.
	FindMatchBetween(ctx context.Context, a, b string) (*models.Match, error)
	// InsertMatch returns ErrDuplicatePair when a match between the two attendees exists in
	// either ordering, including one committed concurrently.
	InsertMatch(ctx context.Context, m *models.Match) error
	UpdateMatch(ctx context.Context, m *models.Match) error
	DeleteAllMatches(ctx context.Context) (int64, error)
	DeleteMatchesForProfile(ctx context.Context, profileID string) (int64, error)

	// WithTx runs fn against a transactional view. Any error rolls back every write made through it.
	// Called on a transactional view it nests: an error rolls back only the nested writes and the
	// enclosing transaction stays usable.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
