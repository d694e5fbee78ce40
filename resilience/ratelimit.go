package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the client-side request limiter.
type RateLimiterConfig struct {
	// Rate is the number of remote requests allowed per second.
	// Default: 50
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning an error.
	// Default: false
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token when WaitOnLimit is set.
	// Zero means wait as long as the context allows.
	MaxWait time.Duration
}

// RateLimiter spaces out remote requests so that many pool workers do not
// trip the remote service's own rate limit at once.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 50
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait < 0 {
		config.MaxWait = 0
	}

	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow reports whether a request may happen now.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Wait blocks until a token is available, MaxWait elapses or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.config.MaxWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, rl.config.MaxWait)
		defer cancel()
		if err := rl.limiter.Wait(waitCtx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrRateLimitExceeded
		}
		return nil
	}
	if err := rl.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimitExceeded
	}
	return nil
}

// Execute runs the operation if allowed by the rate limit. A rejected request
// is reported as a transient rate-limit failure so an outer Retry backs off.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if op == nil {
		return ErrNilOperation
	}
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			if err == ErrRateLimitExceeded {
				return Transient(KindRateLimit, err)
			}
			return err
		}
	} else if !rl.Allow() {
		return Transient(KindRateLimit, ErrRateLimitExceeded)
	}

	return op(ctx)
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.Tokens()
}

// Config returns the rate limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}

var _ Invoker = (*RateLimiter)(nil)
