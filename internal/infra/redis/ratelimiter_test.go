package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limitPerSec int64, nowFn func() time.Time) *RedisRateLimiter {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := newRedisRateLimiter(client, limitPerSec, nowFn)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}
	return limiter
}

func TestRateLimiterAllowsUpToLimitWithinWindow(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, 2, func() time.Time { return frozen })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "automation-key")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "automation-key")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("request over the per-second limit should be rejected")
	}
}

func TestRateLimiterNewWindowResetsCounter(t *testing.T) {
	t.Parallel()

	current := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, 1, func() time.Time { return current })

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "automation-key"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "automation-key"); allowed {
		t.Fatal("second request in the same second should be rejected")
	}

	current = current.Add(time.Second)
	if allowed, _ := limiter.Allow(ctx, "automation-key"); !allowed {
		t.Fatal("a new second opens a fresh window")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	frozen := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	limiter := newTestLimiter(t, 1, func() time.Time { return frozen })

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "key-a"); !allowed {
		t.Fatal("key-a should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "key-b"); !allowed {
		t.Fatal("key-b has its own window")
	}
	if allowed, _ := limiter.Allow(ctx, "key-a"); allowed {
		t.Fatal("key-a is exhausted")
	}
}

func TestRateLimiterRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	limiter := newTestLimiter(t, 1, nil)

	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("blank key must be an error")
	}
}
