package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window rate limiter backed by a shared Redis counter,
// so limits hold across service instances.
type Limiter struct {
	client *redis.Client
	prefix string
}

// NewLimiter creates a Limiter namespaced by prefix.
func NewLimiter(client *redis.Client, prefix string) *Limiter {
	return &Limiter{client: client, prefix: prefix}
}

// Allow increments the counter for key and reports whether the caller is
// still within limit for the window. The window starts at the first hit.
// When Redis is unreachable the caller gets true alongside the error, so
// a limiter outage never blocks requests.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if count == 1 {
		// First hit opens the window.
		if err := l.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return true, fmt.Errorf("failed to set window expiry: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// Throttle sets a do-not-repeat marker for key and reports whether the
// action is allowed (true on first call, false until the TTL lapses). Used
// for the verification-email resend throttle.
func (l *Limiter) Throttle(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("%s:throttle:%s", l.prefix, key)

	ok, err := l.client.SetNX(ctx, redisKey, 1, ttl).Result()
	if err != nil {
		return true, fmt.Errorf("throttle unavailable: %w", err)
	}
	return ok, nil
}
