package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: matchmaker
    user: ${TEST_MATCHMAKER_DB_USER}
workers:
  generate-matches:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("TEST_MATCHMAKER_DB_USER", "matcher")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "matcher", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	assert.Equal(t, 10, cfg.Matching.TopK)
	assert.Equal(t, 5, cfg.Matching.OverfetchFactor)
	assert.Equal(t, 200, cfg.Matching.MaxOverfetch)
	assert.InDelta(t, 0.60, cfg.Matching.MinOverallScore, 1e-9)
	assert.Equal(t, "pgvector", cfg.Matching.SimilarityBackend)
	assert.Equal(t, "memory", cfg.Matching.CacheBackend)
	assert.False(t, cfg.Matching.RerankEnabled)

	assert.Equal(t, 768, cfg.APIs.GenAI.EmbeddingDimensions)
	assert.Equal(t, "text-embedding-004", cfg.APIs.GenAI.EmbeddingModel)

	assert.Equal(t, 200, cfg.Engagement.MaxListed)
	assert.Equal(t, "none", cfg.Engagement.Channel)

	w := cfg.Workers["generate-matches"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "elasticsearch backend without addresses",
			body:    minimalConfig + "matching:\n  similarity_backend: elasticsearch\n",
			wantErr: "database.elasticsearch.addresses",
		},
		{
			name:    "redis cache without address",
			body:    minimalConfig + "matching:\n  cache_backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "unknown nudge channel",
			body:    minimalConfig + "engagement:\n  channel: pigeon\n",
			wantErr: "engagement.channel",
		},
		{
			name:    "sns channel without topic",
			body:    minimalConfig + "engagement:\n  channel: sns\n",
			wantErr: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MATCHMAKER_DB_USER", "matcher")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurations(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, 24*time.Hour, Seconds(86400))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"trigger-nudges": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "trigger-nudges"))
	assert.True(t, IsWorkerEnabled(cfg, "list-matches"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "list-matches").Timeout)
}
