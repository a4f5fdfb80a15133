package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without attempting the dependency.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrCancelled is returned when execution is aborted between attempts
	// by context cancellation. It wraps the context error and is never
	// counted as a breaker failure.
	ErrCancelled = errors.New("resilience: execution cancelled")

	// ErrInvalidConfig is wrapped by all construction-time validation errors.
	ErrInvalidConfig = errors.New("resilience: invalid configuration")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt exceeds its time limit.
	ErrTimeout = errors.New("resilience: operation timed out")
)
