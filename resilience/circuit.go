package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerConfig configures the circuit breaker. FailureThreshold,
// HalfOpenSuccessThreshold, and ResetTimeout are required; construction
// fails fast when they are out of range.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of recorded failures in the closed
	// state that opens the circuit. Must be > 0.
	FailureThreshold int

	// HalfOpenSuccessThreshold is the number of successful probes in the
	// half-open state that closes the circuit. Must be > 0.
	HalfOpenSuccessThreshold int

	// HalfOpenMaxProbes is the maximum number of concurrent calls allowed
	// through while half-open. Default: 1.
	HalfOpenMaxProbes int

	// ResetTimeout is how long the circuit stays open before probing.
	// The boundary is inclusive: a call arriving exactly ResetTimeout
	// after opening is allowed through. Must be > 0.
	ResetTimeout time.Duration

	// OnStateChange is called on every state transition, while the
	// breaker lock is held. It must be fast and must not call back into
	// the breaker.
	OnStateChange func(from, to State, at time.Time)

	// IsFailure determines if an error counts as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Clock overrides the time source. Default: time.Now.
	Clock func() time.Time
}

func (c CircuitBreakerConfig) validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("%w: failure threshold must be > 0, got %d", ErrInvalidConfig, c.FailureThreshold)
	}
	if c.HalfOpenSuccessThreshold <= 0 {
		return fmt.Errorf("%w: half-open success threshold must be > 0, got %d", ErrInvalidConfig, c.HalfOpenSuccessThreshold)
	}
	if c.HalfOpenMaxProbes < 0 {
		return fmt.Errorf("%w: half-open max probes must be >= 0, got %d", ErrInvalidConfig, c.HalfOpenMaxProbes)
	}
	if c.ResetTimeout <= 0 {
		return fmt.Errorf("%w: reset timeout must be > 0, got %v", ErrInvalidConfig, c.ResetTimeout)
	}
	return nil
}

// CircuitBreaker gates calls to a dependency based on observed recent
// health. One instance guards one logical dependency for the lifetime of
// the process.
//
// State is owned exclusively by the breaker: Allow, RecordSuccess, and
// RecordFailure are the only mutation points, each a single non-blocking
// critical section.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu               sync.Mutex
	state            State
	failures         int // meaningful only while closed
	successes        int // meaningful only while half-open
	halfOpenInFlight int
	lastTransition   time.Time

	// cumulative counters, exported through Metrics for telemetry bridges
	executions     uint64
	rejections     uint64
	totalFailures  uint64
	totalSuccesses uint64

	listeners []func(from, to State, at time.Time)
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
// It returns an error wrapping ErrInvalidConfig when any threshold or
// timeout is out of range.
func NewCircuitBreaker(config CircuitBreakerConfig) (*CircuitBreaker, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if config.HalfOpenMaxProbes == 0 {
		config.HalfOpenMaxProbes = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}, nil
}

// Allow reports whether a call may proceed. It returns nil when the call
// is permitted and ErrCircuitOpen when it must be rejected without
// attempting the dependency.
//
// While closed, Allow never mutates the failure counter. While open, the
// first call at or after ResetTimeout transitions the breaker to
// half-open and is admitted as a probe. While half-open, at most
// HalfOpenMaxProbes calls are in flight at once; each admitted probe
// must be resolved by exactly one RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.config.Clock()

	switch cb.currentStateLocked(now) {
	case StateClosed:
		cb.executions++
		return nil

	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.HalfOpenMaxProbes {
			cb.rejections++
			return ErrCircuitOpen
		}
		cb.halfOpenInFlight++
		cb.executions++
		return nil

	default: // StateOpen
		cb.rejections++
		return ErrCircuitOpen
	}
}

// RecordSuccess reports one successful observation.
//
// While closed, a single success re-establishes full trust: the failure
// counter resets to zero. While half-open, it releases the probe slot and
// closes the circuit once HalfOpenSuccessThreshold probes have succeeded.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failures = 0

	case StateHalfOpen:
		if cb.halfOpenInFlight > 0 {
			cb.halfOpenInFlight--
		}
		cb.successes++
		if cb.successes >= cb.config.HalfOpenSuccessThreshold {
			cb.transitionLocked(StateClosed, cb.config.Clock())
		}

	case StateOpen:
		// Late report from a call admitted before the circuit opened.
	}
}

// RecordFailure reports one failed observation.
//
// While closed, it increments the failure counter and opens the circuit
// at FailureThreshold. While half-open, any failure reopens the circuit
// immediately and restarts the reset timeout.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionLocked(StateOpen, cb.config.Clock())
		}

	case StateHalfOpen:
		cb.transitionLocked(StateOpen, cb.config.Clock())

	case StateOpen:
		// Late report from a call admitted before the circuit opened.
	}
}

// discard releases a half-open probe slot without recording an
// observation. Used for cancelled operations, which say nothing about
// dependency health.
func (cb *CircuitBreaker) discard() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}
}

// Execute runs the operation through the circuit breaker, recording the
// outcome as a single observation.
func (cb *CircuitBreaker) Execute(ctx context.Context, op Operation) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	if cb.isFailure(err) {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// State returns the current circuit state, applying the open-to-half-open
// transition if the reset timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked(cb.config.Clock())
}

// Reset forces the circuit breaker back to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed, cb.config.Clock())
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	return cb.config.IsFailure(err)
}

// addStateListener registers an internal transition hook. Listeners run
// under the breaker lock, after the configured OnStateChange callback.
func (cb *CircuitBreaker) addStateListener(fn func(from, to State, at time.Time)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.listeners = append(cb.listeners, fn)
}

// currentStateLocked returns the effective state at now, performing the
// lazy open-to-half-open transition when the reset timeout has elapsed.
func (cb *CircuitBreaker) currentStateLocked(now time.Time) State {
	if cb.state == StateOpen && now.Sub(cb.lastTransition) >= cb.config.ResetTimeout {
		cb.transitionLocked(StateHalfOpen, now)
	}
	return cb.state
}

// transitionLocked moves to the target state, resetting both counters and
// the probe gate. Transitions within one open cycle are monotonic:
// closed->open, open->half-open, half-open->{closed,open}.
func (cb *CircuitBreaker) transitionLocked(to State, at time.Time) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenInFlight = 0
	cb.lastTransition = at

	if from == to {
		return
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to, at)
	}
	for _, fn := range cb.listeners {
		fn(from, to, at)
	}
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:          cb.currentStateLocked(cb.config.Clock()),
		Failures:       cb.failures,
		Successes:      cb.successes,
		Executions:     cb.executions,
		Rejections:     cb.rejections,
		TotalFailures:  cb.totalFailures,
		TotalSuccesses: cb.totalSuccesses,
		LastTransition: cb.lastTransition,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	// State is the effective state at snapshot time.
	State State
	// Failures is the active closed-state failure counter.
	Failures int
	// Successes is the active half-open success counter.
	Successes int
	// Executions is the cumulative number of calls Allow admitted.
	Executions uint64
	// Rejections is the cumulative number of calls Allow rejected.
	Rejections uint64
	// TotalFailures is the cumulative number of recorded failures.
	TotalFailures uint64
	// TotalSuccesses is the cumulative number of recorded successes.
	TotalSuccesses uint64
	// LastTransition is when the state last changed.
	LastTransition time.Time
}
