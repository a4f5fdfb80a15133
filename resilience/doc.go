// Package resilience guards calls to unreliable dependencies with a
// circuit breaker, a retry policy, and an executor that composes the two
// through an explicit accounting protocol.
//
// # Components
//
//   - Circuit Breaker: a three-state (closed/open/half-open) gate that
//     fails fast once a dependency is known to be unhealthy and probes it
//     after a cooldown. Exposed as Allow plus RecordSuccess/RecordFailure
//     so callers control what counts as one observation.
//
//   - Retry: bounded attempts with capped exponential backoff and jitter.
//     Retry knows nothing about circuit state; the decision to retry is an
//     injected predicate over the error.
//
//   - Executor: wires a breaker and a retry policy together. The unit of
//     breaker accounting is a required configuration choice
//     (AccountingMode), not a side effect of nesting order.
//
//   - Supporting stages: per-attempt timeout, bulkhead concurrency cap,
//     and token-bucket rate limiting can be layered onto an executor.
//
// # Accounting modes
//
// AccountPerOperation reports one success or failure to the breaker per
// Execute call, after the whole retry sequence resolves. The breaker's
// FailureThreshold then means "N failed operations".
//
// AccountPerAttempt reports every individual attempt to the breaker as it
// happens. FailureThreshold then means "N failed attempts", and a breaker
// that opens mid-sequence aborts the remaining retries with ErrCircuitOpen.
//
// # Usage
//
//	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold:         5,
//	    HalfOpenSuccessThreshold: 2,
//	    ResetTimeout:             30 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	retry, err := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:    3,
//	    BaseDelay:      100 * time.Millisecond,
//	    MaxDelay:       5 * time.Second,
//	    JitterFraction: 0.25,
//	})
//	if err != nil {
//	    return err
//	}
//
//	exec, err := resilience.NewExecutor(cb, retry, resilience.AccountPerOperation)
//	if err != nil {
//	    return err
//	}
//
//	err = exec.Execute(ctx, func(ctx context.Context) error {
//	    return callDependency(ctx)
//	})
//
// Callers can always distinguish "the dependency failed" (the last
// underlying error), "we did not even try" (ErrCircuitOpen), and "the
// caller gave up" (ErrCancelled) via errors.Is.
package resilience
