// internal/matching/engagement/delivery.go
package engagement

import (
	"context"
	"sync"
	"time"

	apperrors "event-matchmaker/internal/common/errors"
	"event-matchmaker/internal/models"

	"github.com/redis/go-redis/v9"
)

// DeliveryStore remembers which nudge keys were delivered.
type DeliveryStore interface {
	// FilterUndelivered returns the nudges whose keys were not marked. It has no side effects.
	FilterUndelivered(ctx context.Context, nudges []models.Nudge) ([]models.Nudge, error)
	MarkDelivered(ctx context.Context, nudges []models.Nudge) error
}

// MemoryDeliveryStore keeps delivered keys for the life of the process.
type MemoryDeliveryStore struct {
	mu        sync.RWMutex
	delivered map[string]struct{}
}

func NewMemoryDeliveryStore() *MemoryDeliveryStore {
	return &MemoryDeliveryStore{delivered: make(map[string]struct{})}
}

func (s *MemoryDeliveryStore) FilterUndelivered(ctx context.Context, nudges []models.Nudge) ([]models.Nudge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Nudge, 0, len(nudges))
	for _, n := range nudges {
		if _, done := s.delivered[n.Key]; !done {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryDeliveryStore) MarkDelivered(ctx context.Context, nudges []models.Nudge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range nudges {
		s.delivered[n.Key] = struct{}{}
	}
	return nil
}

const deliveredKeyPrefix = "engagement:nudge:"

// RedisDeliveryStore shares delivered keys across worker replicas. Keys expire after ttl.
type RedisDeliveryStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeliveryStore(client redis.Cmdable, ttl time.Duration) *RedisDeliveryStore {
	return &RedisDeliveryStore{client: client, ttl: ttl}
}

func (s *RedisDeliveryStore) FilterUndelivered(ctx context.Context, nudges []models.Nudge) ([]models.Nudge, error) {
	if len(nudges) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	checks := make([]*redis.IntCmd, len(nudges))
	for i, n := range nudges {
		checks[i] = pipe.Exists(ctx, deliveredKeyPrefix+n.Key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, apperrors.NewCacheError("filter delivered nudges", err)
	}

	out := make([]models.Nudge, 0, len(nudges))
	for i, n := range nudges {
		if checks[i].Val() == 0 {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *RedisDeliveryStore) MarkDelivered(ctx context.Context, nudges []models.Nudge) error {
	if len(nudges) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, n := range nudges {
		pipe.Set(ctx, deliveredKeyPrefix+n.Key, n.CreatedAt.UTC().Format(time.RFC3339), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewCacheError("mark nudges delivered", err)
	}
	return nil
}
