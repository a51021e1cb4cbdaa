package verify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vnlease/vnlease-api/pkg/logger"
)

// Cache records which business numbers passed external verification. An
// entry is good for the configured TTL (24h); company registration is
// refused without a fresh entry for the exact number string.
type Cache interface {
	Put(ctx context.Context, businessNumber string) error
	IsVerified(ctx context.Context, businessNumber string) (bool, error)
	// Sweep evicts expired entries; periodic callers keep memory bounded
	// even when nothing reads a stale key.
	Sweep(ctx context.Context) (int, error)
}

// MemoryCache is the process-local default. Reads evict lazily; the hourly
// sweep covers keys that are never read again.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Put(_ context.Context, businessNumber string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[businessNumber] = c.now()
	return nil
}

func (c *MemoryCache) IsVerified(_ context.Context, businessNumber string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	verifiedAt, ok := c.entries[businessNumber]
	if !ok {
		return false, nil
	}
	if c.now().Sub(verifiedAt) >= c.ttl {
		delete(c.entries, businessNumber)
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) Sweep(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted int
	cutoff := c.now().Add(-c.ttl)
	for number, verifiedAt := range c.entries {
		if !verifiedAt.After(cutoff) {
			delete(c.entries, number)
			evicted++
		}
	}
	return evicted, nil
}

// RunSweeper sweeps every interval until ctx is canceled. Run it on its own
// goroutine; it never blocks request handling.
func RunSweeper(ctx context.Context, cache Cache, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := cache.Sweep(ctx)
			if err != nil {
				logger.WarnContext(ctx, "Verification cache sweep failed", "error", err)
				continue
			}
			if evicted > 0 {
				logger.InfoContext(ctx, "Verification cache sweep", "evicted", evicted)
			}
		}
	}
}

// RedisCache delegates expiry to Redis key TTLs, so Sweep is a no-op.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func redisKey(businessNumber string) string {
	return "bizno:verified:" + businessNumber
}

func (c *RedisCache) Put(ctx context.Context, businessNumber string) error {
	return c.client.Set(ctx, redisKey(businessNumber), time.Now().Format(time.RFC3339), c.ttl).Err()
}

func (c *RedisCache) IsVerified(ctx context.Context, businessNumber string) (bool, error) {
	_, err := c.client.Get(ctx, redisKey(businessNumber)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) Sweep(context.Context) (int, error) {
	return 0, nil
}
