package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/models"
	"event-matchmaker/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// pgvector
// ==========================

func TestPGVectorIndex_Nearest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, embedding <=> \$1 AS distance FROM attendees WHERE embedding IS NOT NULL AND id <> \$2`).
		WithArgs(sqlmock.AnyArg(), "me", sqlmock.AnyArg(), 15).
		WillReturnRows(sqlmock.NewRows([]string{"id", "distance"}).
			AddRow("a", 0.1).
			AddRow("b", 0.35))

	idx := NewPGVectorIndex(db)
	got, err := idx.Nearest(context.Background(), []float32{1, 0}, "me", nil, 15)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.InDelta(t, 0.9, got[0].Similarity, 1e-9)
	assert.InDelta(t, 0.65, got[1].Similarity, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorIndex_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM attendees`).WillReturnError(errors.New("operator does not exist"))

	_, err = NewPGVectorIndex(db).Nearest(context.Background(), []float32{1}, "me", nil, 5)
	assert.True(t, errors.Is(err, apperrors.ErrSearch))
}

// ==========================
// elasticsearch
// ==========================

func newESTestClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearchIndex_Nearest(t *testing.T) {
	var captured map[string]interface{}
	client := newESTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profiles/_search", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"a","_score":0.95},{"_id":"b","_score":0.75}]}}`))
	})

	idx := NewElasticsearchIndex(client, "profiles")
	got, err := idx.Nearest(context.Background(), []float32{1, 0}, "me", []string{"host"}, 10)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.InDelta(t, 0.9, got[0].Similarity, 1e-9)
	assert.InDelta(t, 0.5, got[1].Similarity, 1e-9)

	knn := captured["knn"].(map[string]interface{})
	assert.EqualValues(t, 10, knn["k"])
	assert.EqualValues(t, 100, knn["num_candidates"])
	mustNot := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})["must_not"].([]interface{})
	ids := mustNot[0].(map[string]interface{})["ids"].(map[string]interface{})["values"].([]interface{})
	assert.Equal(t, []interface{}{"me", "host"}, ids)
}

func TestElasticsearchIndex_ErrorStatus(t *testing.T) {
	client := newESTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad knn"}`))
	})

	_, err := NewElasticsearchIndex(client, "profiles").Nearest(context.Background(), []float32{1}, "me", nil, 3)
	assert.True(t, errors.Is(err, apperrors.ErrSearch))
}

func TestElasticsearchIndex_Upsert(t *testing.T) {
	var (
		path string
		doc  profileDocument
	)
	client := newESTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &doc)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	idx := NewElasticsearchIndex(client, "profiles")
	require.NoError(t, idx.Upsert(context.Background(), &models.Profile{ID: "p1", Embedding: []float32{0.5, 0.5}}))

	assert.Equal(t, "/profiles/_doc/p1", path)
	assert.Equal(t, "p1", doc.ProfileID)
	assert.Equal(t, []float32{0.5, 0.5}, doc.Embedding)
}

func TestElasticsearchIndex_UpsertSkipsUnembedded(t *testing.T) {
	called := false
	client := newESTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	require.NoError(t, NewElasticsearchIndex(client, "profiles").Upsert(context.Background(), &models.Profile{ID: "p1"}))
	assert.False(t, called)
}

func TestElasticsearchIndex_Remove(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "deleted", status: http.StatusOK},
		{name: "never indexed", status: http.StatusNotFound},
		{name: "cluster error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			client := newESTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"result":"deleted"}`))
			})

			err := NewElasticsearchIndex(client, "profiles").Remove(context.Background(), "p1")
			assert.Equal(t, http.MethodDelete, method)
			assert.Equal(t, "/profiles/_doc/p1", path)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperrors.ErrSearch))
				return
			}
			assert.NoError(t, err)
		})
	}
}

// ==========================
// in-process
// ==========================

func TestMemoryIndex_Nearest(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	for _, p := range []*models.Profile{
		{ID: "me", Embedding: []float32{1, 0}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "mid", Embedding: []float32{1, 1}},
		{ID: "far", Embedding: []float32{-1, 0}},
		{ID: "host", Embedding: []float32{1, 0}},
		{ID: "blank"},
	} {
		require.NoError(t, mem.CreateProfile(ctx, p))
	}

	got, err := NewMemoryIndex(mem).Nearest(ctx, []float32{1, 0}, "me", []string{"host"}, 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "far", got[2].ID)
	assert.InDelta(t, -1.0, got[2].Similarity, 1e-9)
}
