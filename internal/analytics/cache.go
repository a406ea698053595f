package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const generationKey = "stats:generation"

// Cache keeps one Summary per scope token in Redis. Every key embeds the
// current generation, so Invalidate retires all scopes with a single INCR and
// stale entries age out through the TTL.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCache builds a Cache. A nil client disables caching.
func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Generation returns the live generation, seeding it at 1.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	if err := c.client.SetNX(ctx, generationKey, 1, 0).Err(); err != nil {
		return 0, fmt.Errorf("analytics: seed generation: %w", err)
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("analytics: read generation: %w", err)
	}
	return gen, nil
}

// Summary returns the entry stored under key or calls load and stores its
// result. Unreadable entries count as misses.
func (c *Cache) Summary(ctx context.Context, key string, load func(context.Context) (Summary, error)) (Summary, error) {
	if !c.enabled() {
		return load(ctx)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached Summary
		if json.Unmarshal(raw, &cached) == nil {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		return Summary{}, fmt.Errorf("analytics: read %s: %w", key, err)
	}

	summary, err := load(ctx)
	if err != nil {
		return Summary{}, err
	}
	raw, err = json.Marshal(summary)
	if err != nil {
		return Summary{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Summary{}, fmt.Errorf("analytics: store %s: %w", key, err)
	}
	return summary, nil
}

// Invalidate moves to the next generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

func summaryKey(gen int64, token string) string {
	return fmt.Sprintf("stats:summary:%d:%s", gen, token)
}
