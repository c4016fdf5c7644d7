package util

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token-bucket limiter that refills at a fixed rate per
// second. A nil *RateLimiter allows everything.
type RateLimiter struct {
	lim *rate.Limiter
}

// NewRateLimiter creates a RateLimiter allowing perSecond operations per
// second with a burst of the same size. It returns nil when perSecond is not
// positive, which disables limiting.
func NewRateLimiter(perSecond float64) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{lim: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether a token is available now, consuming it if so.
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	return rl.lim.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}
	return rl.lim.Wait(ctx)
}
