// Package cache memoizes the first stats page between refresh ticks. Only
// the (page=1, default limit) response qualifies; everything else bypasses.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"teledash/internal/models"
)

// Cache is the injected memoization slot in front of the stats aggregator.
// Implementations are free to be process-local or shared.
type Cache interface {
	// Get returns the cached response, or false when empty or expired.
	Get(ctx context.Context) (*models.StatsResponse, bool)
	// Set stores a freshly computed response, stamped now.
	Set(ctx context.Context, resp *models.StatsResponse)
}

// ============================================================================
// In-process single slot
// ============================================================================

// MemoryCache is a single-slot cache with a TTL. Concurrent misses all
// recompute and each stores its result; the writes are idempotent so the
// last one simply wins.
type MemoryCache struct {
	mu    sync.RWMutex
	entry *models.StatsResponse
	at    time.Time
	ttl   time.Duration
}

// NewMemoryCache creates an empty slot with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl}
}

func (c *MemoryCache) Get(_ context.Context) (*models.StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil {
		return nil, false
	}
	if time.Since(c.at) > c.ttl {
		return nil, false
	}
	return c.entry, true
}

func (c *MemoryCache) Set(_ context.Context, resp *models.StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = resp
	c.at = time.Now()
}

// ============================================================================
// Redis-backed slot
// ============================================================================

const redisKey = "teledash:stats:first-page"

// RedisCache holds the slot in Redis so multiple dashboard replicas share
// one memoization. Redis errors degrade to cache misses; the store remains
// the source of truth.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects a client from a redis URL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context) (*models.StatsResponse, bool) {
	data, err := c.client.Get(ctx, redisKey).Bytes()
	if err != nil {
		return nil, false
	}
	var resp models.StatsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *RedisCache) Set(ctx context.Context, resp *models.StatsResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKey, data, c.ttl)
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
