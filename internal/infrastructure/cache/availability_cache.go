package cache

import (
	"context"
	"errors"
	"time"

	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// AvailabilityKeyPrefix namespaces cached slot availability answers
const AvailabilityKeyPrefix = "slot:availability:"

// redisOpTimeout bounds one cache round trip so a slow Redis never stalls a poll
const redisOpTimeout = 500 * time.Millisecond

type redisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAvailabilityCache caches availability for ttl. Entries are short
// lived and dropped on every claim or cancellation of their slot.
func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) repository.AvailabilityCache {
	return &redisAvailabilityCache{client: client, ttl: ttl}
}

func AvailabilityKey(slot entity.SlotKey) string {
	return AvailabilityKeyPrefix + slot.Date() + ":" + slot.Clock24()
}

func (c *redisAvailabilityCache) Get(ctx context.Context, slot entity.SlotKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, AvailabilityKey(slot)).Result()
	if errors.Is(err, redis.Nil) {
		return false, repository.ErrCacheMiss
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (c *redisAvailabilityCache) Set(ctx context.Context, slot entity.SlotKey, available bool) error {
	if c.ttl <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	val := "0"
	if available {
		val = "1"
	}
	return c.client.Set(ctx, AvailabilityKey(slot), val, c.ttl).Err()
}

func (c *redisAvailabilityCache) Invalidate(ctx context.Context, slot entity.SlotKey) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	return c.client.Del(ctx, AvailabilityKey(slot)).Err()
}

type noopAvailabilityCache struct{}

// NewNoopAvailabilityCache is used when Redis is disabled; every read misses.
func NewNoopAvailabilityCache() repository.AvailabilityCache {
	return noopAvailabilityCache{}
}

func (noopAvailabilityCache) Get(context.Context, entity.SlotKey) (bool, error) {
	return false, repository.ErrCacheMiss
}

func (noopAvailabilityCache) Set(context.Context, entity.SlotKey, bool) error {
	return nil
}

func (noopAvailabilityCache) Invalidate(context.Context, entity.SlotKey) error {
	return nil
}
