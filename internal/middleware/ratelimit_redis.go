package middleware

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRateLimitKeyPrefix namespaces rate limit counters in Redis.
const DefaultRateLimitKeyPrefix = "golocal:ratelimit:"

// RedisRateLimitStore is a fixed-window counter shared across instances.
// Each window is one key: INCR counts the request and the key's TTL is the
// time left in the window.
type RedisRateLimitStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRateLimitStore creates a store using DefaultRateLimitKeyPrefix.
func NewRedisRateLimitStore(client redis.Cmdable) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client, prefix: DefaultRateLimitKeyPrefix}
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (Decision, error) {
	k := s.prefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit incr %s: %w", key, err)
	}

	count := incr.Val()
	wait := ttl.Val()
	// A negative TTL means the key was just created or lost its expiry.
	if wait < 0 {
		if err := s.client.PExpire(ctx, k, config.WindowDuration).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
		wait = config.WindowDuration
	}

	limit := int64(config.RequestsPerWindow)
	if count <= limit {
		return Decision{Allowed: true, Remaining: int(limit - count)}, nil
	}
	return Decision{RetryAfter: secondsUntil(wait)}, nil
}

var (
	_ RateLimitStore = (*RedisRateLimitStore)(nil)
	_ RateLimitStore = (*InMemoryRateLimitStore)(nil)
)
