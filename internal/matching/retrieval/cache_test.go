package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "event-matchmaker/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCandidateCache_Expiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCandidateCacheWithClock(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", CandidateSet{TopK: 5, Candidates: []Neighbor{{ID: "b", Similarity: 0.9}}}))

	got, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CandidateSet{TopK: 5, Candidates: []Neighbor{{ID: "b", Similarity: 0.9}}}, got)

	now = now.Add(59 * time.Minute)
	_, ok, _ = cache.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryCandidateCache_Invalidate(t *testing.T) {
	cache := NewMemoryCandidateCache(time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", CandidateSet{TopK: 1, Candidates: []Neighbor{{ID: "b"}}}))
	require.NoError(t, cache.Invalidate(ctx, "a"))

	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCandidateCache_RoundTripAndTTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCandidateCache(client, 30*time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "a", CandidateSet{TopK: 2, Candidates: []Neighbor{{ID: "b", Similarity: 0.8}, {ID: "c", Similarity: 0.7}}}))
	assert.Equal(t, 30*time.Minute, mr.TTL("matching:candidates:a"))

	got, ok, err := cache.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.TopK)
	assert.Equal(t, "c", got.Candidates[1].ID)

	mr.FastForward(31 * time.Minute)
	_, ok, err = cache.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCandidateSet_Covers(t *testing.T) {
	set := CandidateSet{TopK: 5, Candidates: []Neighbor{{ID: "b"}}}

	assert.True(t, set.Covers(1))
	assert.True(t, set.Covers(5))
	assert.False(t, set.Covers(6))
}

func TestRedisCandidateCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisCandidateCache(db, time.Minute)
	ctx := context.Background()

	mock.ExpectGet("matching:candidates:a").SetErr(errors.New("connection refused"))
	_, _, err := cache.Get(ctx, "a")
	assert.True(t, errors.Is(err, apperrors.ErrCache))

	mock.ExpectGet("matching:candidates:b").SetVal("not json")
	_, _, err = cache.Get(ctx, "b")
	assert.Error(t, err)

	mock.ExpectDel("matching:candidates:c").SetErr(errors.New("readonly"))
	assert.Error(t, cache.Invalidate(ctx, "c"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
