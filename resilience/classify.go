package resilience

import (
	"context"
	"errors"
)

// Classifiers for RetryConfig.RetryIf and CircuitBreakerConfig.IsFailure.
// Retry decisions are declared here, not inferred from error strings.

// RetryAnyError retries every non-nil error.
func RetryAnyError(err error) bool {
	return err != nil
}

// RetryOn retries only errors matching one of the given targets.
func RetryOn(targets ...error) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// RetryUnless retries every non-nil error except those matching one of
// the given targets.
func RetryUnless(targets ...error) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return false
		}
		for _, target := range targets {
			if errors.Is(err, target) {
				return false
			}
		}
		return true
	}
}

// RetryTransient retries errors that look transient: deadline expiry and
// errors exposing Temporary() bool. Context cancellation is never
// retried; the caller has given up.
func RetryTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}
