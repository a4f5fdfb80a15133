package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures the retry behavior. MaxAttempts, BaseDelay, and
// MaxDelay are required; construction fails fast when they are out of
// range.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Must be >= 1.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt. The delay
	// doubles each attempt. Must be > 0.
	BaseDelay time.Duration

	// MaxDelay caps the backoff before jitter is applied.
	// Must be >= BaseDelay.
	MaxDelay time.Duration

	// JitterFraction scales each delay by a random factor in
	// [1, 1+JitterFraction] to avoid synchronized retries.
	// Must be in [0, 1]. Default: 0 (no jitter).
	JitterFraction float64

	// RetryIf determines if an error should trigger a retry. Errors it
	// rejects are returned immediately on first occurrence.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before sleeping, ahead of each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c RetryConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be >= 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("%w: base delay must be > 0, got %v", ErrInvalidConfig, c.BaseDelay)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("%w: max delay %v must be >= base delay %v", ErrInvalidConfig, c.MaxDelay, c.BaseDelay)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("%w: jitter fraction must be in [0, 1], got %v", ErrInvalidConfig, c.JitterFraction)
	}
	return nil
}

// Retry implements bounded attempts with capped exponential backoff.
// It holds no state across executions and knows nothing about circuit
// breakers; per-attempt reactions happen through the attempt callback.
type Retry struct {
	config RetryConfig

	// test seams
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// NewRetry creates a retry policy. It returns an error wrapping
// ErrInvalidConfig when any bound is out of range.
func NewRetry(config RetryConfig) (*Retry, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{
		config:    config,
		sleep:     sleepWithContext,
		randFloat: rand.Float64,
	}, nil
}

// Execute runs the operation up to MaxAttempts times. onAttempt, if
// non-nil, is called synchronously after every attempt and before any
// backoff sleep.
//
// It returns nil on the first success, the error itself when RetryIf
// rejects it, the last error when attempts exhaust, or an error wrapping
// ErrCancelled when the context is done between attempts. Backoff sleeps
// happen outside any lock.
func (r *Retry) Execute(ctx context.Context, op Operation, onAttempt func(AttemptOutcome)) error {
	return r.execute(ctx, op, onAttempt, nil)
}

// execute is Execute plus an optional gate checked before every attempt
// after the first. The executor injects the breaker's Allow here when
// accounting per attempt; in every other configuration the retry loop
// stays ignorant of circuit state.
func (r *Retry) execute(ctx context.Context, op Operation, onAttempt func(AttemptOutcome), gate func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 && gate != nil {
			if err := gate(); err != nil {
				return err
			}
		}

		started := time.Now()
		err := op(ctx)

		if onAttempt != nil {
			onAttempt(AttemptOutcome{
				Attempt: attempt,
				Err:     err,
				Started: started,
				Elapsed: time.Since(started),
			})
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, serr)
		}
	}

	return lastErr
}

// delay computes the backoff after the given 1-based attempt:
// min(BaseDelay * 2^(attempt-1), MaxDelay) scaled by a random factor in
// [1, 1+JitterFraction].
func (r *Retry) delay(attempt int) time.Duration {
	backoff := float64(r.config.BaseDelay) * math.Pow(2, float64(attempt-1))
	if backoff > float64(r.config.MaxDelay) {
		backoff = float64(r.config.MaxDelay)
	}
	if r.config.JitterFraction > 0 {
		backoff *= 1 + r.randFloat()*r.config.JitterFraction
	}
	return time.Duration(backoff)
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
