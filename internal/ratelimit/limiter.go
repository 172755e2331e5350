// Package ratelimit throttles guest endpoints per client.
package ratelimit

import (
	"context"
	"time"
)

// Limits bounds how many requests a key may make per window. Zero disables a
// window.
type Limits struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limits Limits) (bool, error)
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}
