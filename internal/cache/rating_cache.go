package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/freelance-reviews/internal/models"
)

const summaryKeyPrefix = "rating:summary:"

func SummaryKey(subjectID uuid.UUID) string {
	return summaryKeyPrefix + subjectID.String()
}

// RedisRatingCache хранит RatingSummary в Redis в виде JSON.
type RedisRatingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRatingCache(client *redis.Client, ttl time.Duration) *RedisRatingCache {
	return &RedisRatingCache{client: client, ttl: ttl}
}

// GetSummary возвращает (nil, false, nil), если записи нет.
func (c *RedisRatingCache) GetSummary(ctx context.Context, subjectID uuid.UUID) (*models.RatingSummary, bool, error) {
	data, err := c.client.Get(ctx, SummaryKey(subjectID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("rating cache: get: %w", err)
	}
	var summary models.RatingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("rating cache: decode: %w", err)
	}
	return &summary, true, nil
}

func (c *RedisRatingCache) SetSummary(ctx context.Context, summary *models.RatingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("rating cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, SummaryKey(summary.SubjectID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("rating cache: set: %w", err)
	}
	return nil
}

func (c *RedisRatingCache) Invalidate(ctx context.Context, subjectID uuid.UUID) error {
	if err := c.client.Del(ctx, SummaryKey(subjectID)).Err(); err != nil {
		return fmt.Errorf("rating cache: invalidate: %w", err)
	}
	return nil
}

func (c *RedisRatingCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// MemoryRatingCache реализует тот же контракт поверх MemoryStore для запуска без Redis.
type MemoryRatingCache struct {
	store *MemoryStore
	ttl   time.Duration
}

func NewMemoryRatingCache(store *MemoryStore, ttl time.Duration) *MemoryRatingCache {
	return &MemoryRatingCache{store: store, ttl: ttl}
}

func (c *MemoryRatingCache) GetSummary(_ context.Context, subjectID uuid.UUID) (*models.RatingSummary, bool, error) {
	data, ok := c.store.Get(SummaryKey(subjectID))
	if !ok {
		return nil, false, nil
	}
	var summary models.RatingSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, false, fmt.Errorf("rating cache: decode: %w", err)
	}
	return &summary, true, nil
}

func (c *MemoryRatingCache) SetSummary(_ context.Context, summary *models.RatingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("rating cache: encode: %w", err)
	}
	c.store.Set(SummaryKey(summary.SubjectID), data, c.ttl)
	return nil
}

func (c *MemoryRatingCache) Invalidate(_ context.Context, subjectID uuid.UUID) error {
	c.store.Delete(SummaryKey(subjectID))
	return nil
}

func (c *MemoryRatingCache) Ping(context.Context) error {
	return nil
}
