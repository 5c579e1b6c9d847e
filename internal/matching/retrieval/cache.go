// internal/matching/retrieval/cache.go
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	apperrors "event-matchmaker/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const candidateKeyPrefix = "matching:candidates:"

// CandidateSet is a cached candidate list together with the topK it was built for.
type CandidateSet struct {
	TopK       int        `json:"topK"`
	Candidates []Neighbor `json:"candidates"`
}

// Covers reports whether the set can answer a request for topK candidates.
func (s CandidateSet) Covers(topK int) bool {
	return topK <= s.TopK
}

// CandidateCache holds the last ranked candidate list per attendee until it expires.
type CandidateCache interface {
	Get(ctx context.Context, attendeeID string) (CandidateSet, bool, error)
	Set(ctx context.Context, attendeeID string, set CandidateSet) error
	Invalidate(ctx context.Context, attendeeID string) error
}

// ==========================
// in-process
// ==========================

type cacheEntry struct {
	set       CandidateSet
	expiresAt time.Time
}

// MemoryCandidateCache is process-local. A restart empties it.
type MemoryCandidateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func NewMemoryCandidateCache(ttl time.Duration) *MemoryCandidateCache {
	return NewMemoryCandidateCacheWithClock(ttl, time.Now)
}

func NewMemoryCandidateCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCandidateCache {
	return &MemoryCandidateCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *MemoryCandidateCache) Get(ctx context.Context, attendeeID string) (CandidateSet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[attendeeID]
	if !ok {
		return CandidateSet{}, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, attendeeID)
		return CandidateSet{}, false, nil
	}
	return CandidateSet{
		TopK:       entry.set.TopK,
		Candidates: append([]Neighbor(nil), entry.set.Candidates...),
	}, true, nil
}

func (c *MemoryCandidateCache) Set(ctx context.Context, attendeeID string, set CandidateSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[attendeeID] = cacheEntry{
		set: CandidateSet{
			TopK:       set.TopK,
			Candidates: append([]Neighbor(nil), set.Candidates...),
		},
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryCandidateCache) Invalidate(ctx context.Context, attendeeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, attendeeID)
	return nil
}

// ==========================
// redis
// ==========================

// RedisCandidateCache shares candidate lists across worker processes. Expiry is left to redis.
type RedisCandidateCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCandidateCache(client redis.Cmdable, ttl time.Duration) *RedisCandidateCache {
	return &RedisCandidateCache{client: client, ttl: ttl}
}

func (c *RedisCandidateCache) Get(ctx context.Context, attendeeID string) (CandidateSet, bool, error) {
	val, err := c.client.Get(ctx, candidateKeyPrefix+attendeeID).Result()
	if errors.Is(err, redis.Nil) {
		return CandidateSet{}, false, nil
	}
	if err != nil {
		return CandidateSet{}, false, apperrors.NewCacheError("get candidates", err)
	}

	var set CandidateSet
	if err := json.Unmarshal([]byte(val), &set); err != nil {
		return CandidateSet{}, false, apperrors.NewCacheError("decode candidates", err)
	}
	return set, true, nil
}

func (c *RedisCandidateCache) Set(ctx context.Context, attendeeID string, set CandidateSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return apperrors.NewCacheError("encode candidates", err)
	}
	if err := c.client.Set(ctx, candidateKeyPrefix+attendeeID, data, c.ttl).Err(); err != nil {
		return apperrors.NewCacheError("set candidates", err)
	}
	return nil
}

func (c *RedisCandidateCache) Invalidate(ctx context.Context, attendeeID string) error {
	if err := c.client.Del(ctx, candidateKeyPrefix+attendeeID).Err(); err != nil {
		return apperrors.NewCacheError("invalidate candidates", err)
	}
	return nil
}
