// internal/matching/retrieval/elasticsearch.go
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/matching/similarity"
	"event-matchmaker/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const minNumCandidates = 100

// ElasticsearchIndex runs approximate kNN over a dense_vector field with cosine similarity.
type ElasticsearchIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchIndex(client *elasticsearch.Client, index string) *ElasticsearchIndex {
	return &ElasticsearchIndex{client: client, index: index}
}

type profileDocument struct {
	ProfileID string    `json:"profile_id"`
	Embedding []float32 `json:"embedding"`
}

type knnResponse struct {
	Hits struct {
		Hits []struct {
			ID    string  `json:"_id"`
			Score float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

func (i *ElasticsearchIndex) Nearest(ctx context.Context, query []float32, excludeID string, excluded []string, limit int) ([]Neighbor, error) {
	if limit <= 0 || len(query) == 0 {
		return nil, nil
	}

	ids := append([]string{excludeID}, excluded...)
	numCandidates := limit * 2
	if numCandidates < minNumCandidates {
		numCandidates = minNumCandidates
	}

	body := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   query,
			"k":              limit,
			"num_candidates": numCandidates,
			"filter": map[string]interface{}{
				"bool": map[string]interface{}{
					"must_not": []interface{}{
						map[string]interface{}{"ids": map[string]interface{}{"values": ids}},
					},
				},
			},
		},
		"size":    limit,
		"_source": false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.NewSearchError("elasticsearch", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, apperrors.NewSearchError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchError("elasticsearch", fmt.Errorf("knn search: %s", res.Status()))
	}

	var decoded knnResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, apperrors.NewSearchError("elasticsearch", fmt.Errorf("decode response: %w", err))
	}

	out := make([]Neighbor, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		out = append(out, Neighbor{ID: hit.ID, Similarity: similarity.FromESScore(hit.Score)})
	}
	return out, nil
}

// Upsert indexes the profile's embedding under its id. Profiles without an embedding are skipped.
func (i *ElasticsearchIndex) Upsert(ctx context.Context, p *models.Profile) error {
	if !p.HasEmbedding() {
		return nil
	}

	payload, err := json.Marshal(profileDocument{ProfileID: p.ID, Embedding: p.Embedding})
	if err != nil {
		return apperrors.NewSearchError("elasticsearch", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: p.ID,
		Body:       bytes.NewReader(payload),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchError("elasticsearch", fmt.Errorf("index profile %s: %s", p.ID, res.Status()))
	}
	return nil
}

// Remove deletes the profile's document so a stale embedding stops showing up in kNN results.
func (i *ElasticsearchIndex) Remove(ctx context.Context, profileID string) error {
	req := esapi.DeleteRequest{
		Index:      i.index,
		DocumentID: profileID,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchError("elasticsearch", fmt.Errorf("delete profile %s: %s", profileID, res.Status()))
	}
	return nil
}
