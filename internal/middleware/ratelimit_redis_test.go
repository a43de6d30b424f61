package middleware

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestRedis connects to localhost:6379 and skips the test when Redis is
// not available.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisRateLimitStore_Allow(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}
	ctx := context.Background()

	key := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer client.Del(ctx, DefaultRateLimitKeyPrefix+key)

	for i := 0; i < 5; i++ {
		d, err := store.Allow(ctx, key, config)
		if err != nil {
			t.Fatalf("Allow() error: %v", err)
		}
		if !d.Allowed || d.Remaining != 4-i {
			t.Errorf("request %d: %+v", i+1, d)
		}
	}

	d, err := store.Allow(ctx, key, config)
	if err != nil {
		t.Fatalf("Allow() error: %v", err)
	}
	if d.Allowed {
		t.Error("6th request should be blocked")
	}
	if d.RetryAfter < 1 || d.RetryAfter > 60 {
		t.Errorf("RetryAfter = %d, want 1..60", d.RetryAfter)
	}
}

func TestRedisRateLimitStore_WindowExpiry(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 300 * time.Millisecond}
	ctx := context.Background()

	key := "expiry-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	defer client.Del(ctx, DefaultRateLimitKeyPrefix+key)

	_, _ = store.Allow(ctx, key, config)
	if d, _ := store.Allow(ctx, key, config); d.Allowed {
		t.Fatal("second request should be blocked")
	}

	time.Sleep(400 * time.Millisecond)
	if d, _ := store.Allow(ctx, key, config); !d.Allowed {
		t.Error("request after window should be allowed")
	}
}

// An unreachable Redis must not block traffic.
func TestRedisRateLimitStore_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	d, err := NewRedisRateLimitStore(client).Allow(context.Background(), "k", DefaultAskLimit())
	if err == nil {
		t.Fatal("expected error from unreachable Redis")
	}
	if !d.Allowed {
		t.Error("store errors must produce an allowing decision")
	}
}
