package resilience

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig configures the rate limiting stage.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second. Must be > 0.
	Rate float64

	// Burst is the maximum burst size. Must be >= 1.
	Burst int

	// WaitOnLimit waits for a token instead of failing immediately.
	// Default: false.
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token when WaitOnLimit
	// is set. Default: 1 second.
	MaxWait time.Duration
}

// RateLimiter is a token bucket stage backed by golang.org/x/time/rate.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(config RateLimiterConfig) (*RateLimiter, error) {
	if config.Rate <= 0 {
		return nil, fmt.Errorf("%w: rate must be > 0, got %v", ErrInvalidConfig, config.Rate)
	}
	if config.Burst < 1 {
		return nil, fmt.Errorf("%w: burst must be >= 1, got %d", ErrInvalidConfig, config.Burst)
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}, nil
}

// Allow reports whether one operation may proceed right now.
func (rl *RateLimiter) Allow() bool {
	return rl.limiter.Allow()
}

// Acquire claims a token, waiting up to MaxWait when WaitOnLimit is set.
// It returns ErrRateLimitExceeded when no token is available, or the
// context error when the caller's context ends first.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if !rl.config.WaitOnLimit {
		if rl.limiter.Allow() {
			return nil
		}
		return ErrRateLimitExceeded
	}

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

// Execute runs the operation under the rate limit.
func (rl *RateLimiter) Execute(ctx context.Context, op Operation) error {
	if err := rl.Acquire(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Config returns the rate limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}
