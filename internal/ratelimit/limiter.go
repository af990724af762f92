package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window per-IP rate limiter backed by Redis, used on
// the abuse-prone auth endpoints (login, registration, password reset).
type Limiter struct {
	client *redis.Client
	limits map[string]limit
}

type limit struct {
	max    int64
	window time.Duration
}

var defaultLimit = limit{max: 30, window: time.Minute}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client: client,
		limits: map[string]limit{
			"login":          {max: 10, window: time.Minute},
			"register":       {max: 5, window: time.Minute},
			"password_reset": {max: 5, window: 15 * time.Minute},
		},
	}
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its
// budget for the given purpose. It does not consume budget.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, l.key(ip, purpose)).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.limitFor(purpose).max, nil
}

// RecordIPRequestWithPurpose consumes one unit of the IP's budget, starting
// the window on first use.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := l.key(ip, purpose)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.limitFor(purpose).window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

func (l *Limiter) key(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

func (l *Limiter) limitFor(purpose string) limit {
	if lim, ok := l.limits[purpose]; ok {
		return lim
	}
	return defaultLimit
}
