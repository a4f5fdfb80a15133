package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/fuse/observe"
)

// Executor wires a circuit breaker and a retry policy together through an
// explicit per-attempt observation protocol. What counts as "one failure"
// for breaker accounting is the required AccountingMode, never a side
// effect of nesting order.
type Executor struct {
	breaker  *CircuitBreaker
	retry    *Retry
	mode     AccountingMode
	name     string
	observer observe.Observer

	limiter  *RateLimiter
	bulkhead *Bulkhead
	timeout  *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithName tags the executor's telemetry events with a name, typically
// the guarded dependency.
func WithName(name string) ExecutorOption {
	return func(e *Executor) {
		e.name = name
	}
}

// WithObserver registers the telemetry sink for attempt, operation, and
// state-transition events.
func WithObserver(obs observe.Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = obs
	}
}

// WithRateLimiter adds a rate limiting stage ahead of the breaker.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.limiter = rl
	}
}

// WithBulkhead adds a concurrency cap ahead of the breaker.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithTimeout bounds each individual attempt to the given duration.
func WithTimeout(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// NewExecutor creates an executor over the given breaker and retry
// policy. All three arguments are required; mode must be
// AccountPerOperation or AccountPerAttempt.
func NewExecutor(breaker *CircuitBreaker, retry *Retry, mode AccountingMode, opts ...ExecutorOption) (*Executor, error) {
	if breaker == nil {
		return nil, fmt.Errorf("%w: circuit breaker is required", ErrInvalidConfig)
	}
	if retry == nil {
		return nil, fmt.Errorf("%w: retry policy is required", ErrInvalidConfig)
	}
	if !mode.valid() {
		return nil, fmt.Errorf("%w: accounting mode must be set explicitly", ErrInvalidConfig)
	}

	e := &Executor{
		breaker: breaker,
		retry:   retry,
		mode:    mode,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.observer == nil {
		e.observer = observe.NoopObserver{}
	}

	name := e.name
	obs := e.observer
	breaker.addStateListener(func(from, to State, at time.Time) {
		obs.OnStateTransition(context.Background(), observe.StateTransition{
			Name: name,
			From: from.String(),
			To:   to.String(),
			At:   at,
		})
	})

	return e, nil
}

// Mode returns the executor's accounting mode.
func (e *Executor) Mode() AccountingMode {
	return e.mode
}

// Execute runs the operation through the configured stages:
//
//  1. Rate limiter and bulkhead, when configured.
//  2. The breaker gate. A rejection returns ErrCircuitOpen without
//     invoking the operation or the retry policy.
//  3. The retry loop, observing the breaker per the accounting mode.
//  4. One operation-level telemetry event per outcome.
//
// The returned error is ErrCircuitOpen, an error wrapping ErrCancelled,
// or the last underlying error from the operation, verbatim.
func (e *Executor) Execute(ctx context.Context, op Operation) error {
	start := time.Now()

	if e.limiter != nil {
		if err := e.limiter.Acquire(ctx); err != nil {
			return err
		}
	}
	if e.bulkhead != nil {
		if err := e.bulkhead.Acquire(ctx); err != nil {
			return err
		}
		defer e.bulkhead.Release()
	}

	if err := e.breaker.Allow(); err != nil {
		e.emitOperation(ctx, 0, err, time.Since(start), true)
		return err
	}

	call := op
	if e.timeout != nil {
		inner := call
		call = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	attempts := 0
	onAttempt := func(out AttemptOutcome) {
		attempts++
		e.observer.OnAttempt(ctx, observe.AttemptEvent{
			Name:    e.name,
			Mode:    e.mode.String(),
			Attempt: out.Attempt,
			Err:     out.Err,
			Elapsed: out.Elapsed,
		})
	}

	var err error
	switch e.mode {
	case AccountPerAttempt:
		// Every attempt updates the breaker immediately; the injected
		// gate aborts remaining retries once the breaker opens.
		record := func(out AttemptOutcome) {
			if e.breaker.isFailure(out.Err) {
				e.breaker.RecordFailure()
			} else {
				e.breaker.RecordSuccess()
			}
			onAttempt(out)
		}
		err = e.retry.execute(ctx, call, record, e.breaker.Allow)

	default: // AccountPerOperation
		err = e.retry.execute(ctx, call, onAttempt, nil)
		switch {
		case errors.Is(err, ErrCancelled):
			// An abort says nothing about dependency health: release
			// the probe slot without recording either way.
			e.breaker.discard()
		case e.breaker.isFailure(err):
			e.breaker.RecordFailure()
		default:
			e.breaker.RecordSuccess()
		}
	}

	e.emitOperation(ctx, attempts, err, time.Since(start), false)
	return err
}

func (e *Executor) emitOperation(ctx context.Context, attempts int, err error, elapsed time.Duration, rejected bool) {
	e.observer.OnOperation(ctx, observe.OperationEvent{
		Name:     e.name,
		Mode:     e.mode.String(),
		Attempts: attempts,
		Err:      err,
		Elapsed:  elapsed,
		Rejected: rejected,
	})
}
