// internal/matching/retrieval/index.go
package retrieval

import (
	"context"
	"database/sql"
	"sort"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/matching/similarity"
	"event-matchmaker/internal/models"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Neighbor is one similarity-index hit.
type Neighbor struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// SimilarityIndex returns up to limit nearest profiles by cosine similarity,
// most similar first, never including excludeID or any id in excluded.
type SimilarityIndex interface {
	Nearest(ctx context.Context, query []float32, excludeID string, excluded []string, limit int) ([]Neighbor, error)
}

// Indexer is implemented by indexes that keep their own copy of embeddings.
// Remove of an unknown id is not an error.
type Indexer interface {
	Upsert(ctx context.Context, p *models.Profile) error
	Remove(ctx context.Context, profileID string) error
}

// ==========================
// pgvector
// ==========================

// PGVectorIndex queries the attendees table through the pgvector cosine distance operator.
type PGVectorIndex struct {
	db *sql.DB
}

func NewPGVectorIndex(db *sql.DB) *PGVectorIndex {
	return &PGVectorIndex{db: db}
}

func (i *PGVectorIndex) Nearest(ctx context.Context, query []float32, excludeID string, excluded []string, limit int) ([]Neighbor, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}
	if excluded == nil {
		excluded = []string{}
	}

	rows, err := i.db.QueryContext(ctx, `
		SELECT id, embedding <=> $1 AS distance
		FROM attendees
		WHERE embedding IS NOT NULL AND id <> $2 AND NOT (id = ANY($3))
		ORDER BY embedding <=> $1
		LIMIT $4`,
		pgvector.NewVector(query), excludeID, pq.Array(excluded), limit)
	if err != nil {
		return nil, apperrors.NewSearchError("pgvector", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var (
			n        Neighbor
			distance float64
		)
		if err := rows.Scan(&n.ID, &distance); err != nil {
			return nil, apperrors.NewSearchError("pgvector", err)
		}
		n.Similarity = similarity.FromDistance(distance)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewSearchError("pgvector", err)
	}
	return out, nil
}

// ==========================
// in-process
// ==========================

// ProfileLister is the slice of the store the in-process index reads.
type ProfileLister interface {
	ListProfiles(ctx context.Context) ([]*models.Profile, error)
}

// MemoryIndex scores every embedded profile on each query. Suitable for small pools.
type MemoryIndex struct {
	profiles ProfileLister
}

func NewMemoryIndex(profiles ProfileLister) *MemoryIndex {
	return &MemoryIndex{profiles: profiles}
}

func (i *MemoryIndex) Nearest(ctx context.Context, query []float32, excludeID string, excluded []string, limit int) ([]Neighbor, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}

	all, err := i.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(excluded)+1)
	skip[excludeID] = struct{}{}
	for _, id := range excluded {
		skip[id] = struct{}{}
	}

	out := make([]Neighbor, 0, len(all))
	for _, p := range all {
		if _, ok := skip[p.ID]; ok || len(p.Embedding) != len(query) {
			continue
		}
		out = append(out, Neighbor{ID: p.ID, Similarity: similarity.Cosine(query, p.Embedding)})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
