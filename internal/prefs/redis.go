package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/golocal/internal/tracing"
)

// DefaultRedisKeyPrefix namespaces preference hashes in a shared Redis.
const DefaultRedisKeyPrefix = "golocal:prefs:"

// RedisStore keeps one Redis hash per owner, one field per preference key.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisStore(client redis.Cmdable, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) hashKey(owner string) string {
	return s.prefix + owner
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, owner string, key Key) (value string, found bool, err error) {
	if owner == "" {
		return "", false, ErrEmptyOwner
	}
	ctx, endSpan := tracing.StartRedisSpan(ctx, "HGET", string(key))
	defer func() { endSpan(err) }()

	v, err := s.client.HGet(ctx, s.hashKey(owner), string(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, owner string, key Key, value string) (err error) {
	if owner == "" {
		return ErrEmptyOwner
	}
	ctx, endSpan := tracing.StartRedisSpan(ctx, "HSET", string(key))
	defer func() { endSpan(err) }()

	if err = s.client.HSet(ctx, s.hashKey(owner), string(key), value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}
