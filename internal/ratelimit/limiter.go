package ratelimit

import "context"

// RateLimiter throttles webhook traffic per API key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
