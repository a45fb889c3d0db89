package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the Redis-backed collaborator interface: rate limiting, quota
// accounting, the desktop handoff queue and event publishing all go through
// here. Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	Close() error
	IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error)
	ConsumeQuota(ctx context.Context, key string, limit int64, period time.Duration) (bool, error)
	PushDesktopJob(ctx context.Context, payload []byte) error
	PublishEvent(ctx context.Context, channel string, payload []byte) error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) IncrWithExpiry(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// ConsumeQuota atomically charges one unit against the keyed counter. The
// increment and the allow/deny decision happen in one round trip, so a crash
// in between cannot double-charge more than one unit. An over-limit increment
// is rolled back so a denied check does not burn allowance.
func (c *RedisCache) ConsumeQuota(ctx context.Context, key string, limit int64, period time.Duration) (bool, error) {
	count, err := c.IncrWithExpiry(ctx, key, period)
	if err != nil {
		return false, err
	}
	if count > limit {
		// Best-effort rollback; the key expires with the period either way.
		c.client.Decr(ctx, key)
		return false, nil
	}
	return true, nil
}

// PushDesktopJob appends a handed-off request payload to the desktop
// executor queue. The desktop app consumes it with BRPOP for at-least-once
// delivery.
func (c *RedisCache) PushDesktopJob(ctx context.Context, payload []byte) error {
	return c.client.LPush(ctx, DesktopQueueKey(), payload).Err()
}

func (c *RedisCache) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	return c.client.Publish(ctx, channel, payload).Err()
}
