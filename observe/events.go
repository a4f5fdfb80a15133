package observe

import (
	"context"
	"time"
)

// AttemptEvent describes one completed attempt against a guarded
// dependency.
type AttemptEvent struct {
	// Name is the executor name, empty when unset.
	Name string
	// Mode is the accounting mode label ("per-operation"/"per-attempt").
	Mode string
	// Attempt is the 1-based attempt index within the operation.
	Attempt int
	// Err is the attempt error, nil on success.
	Err error
	// Elapsed is how long the attempt took.
	Elapsed time.Duration
}

// StateTransition describes a circuit breaker state change.
type StateTransition struct {
	// Name is the executor name, empty when unset.
	Name string
	// From and To are state labels ("closed", "open", "half-open").
	From, To string
	// At is when the transition happened.
	At time.Time
}

// OperationEvent summarizes one executor operation: a full Execute call,
// however many attempts it consumed.
type OperationEvent struct {
	// Name is the executor name, empty when unset.
	Name string
	// Mode is the accounting mode label.
	Mode string
	// Attempts is the number of attempts consumed; 0 when rejected.
	Attempts int
	// Err is the final error, nil on success.
	Err error
	// Elapsed is the total operation duration including backoff.
	Elapsed time.Duration
	// Rejected is true when the circuit rejected the call outright.
	Rejected bool
}

// Observer receives resilience lifecycle events.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
// - Latency: callbacks run on hot paths (state transitions fire under
//   the breaker lock) and must return quickly without blocking I/O.
type Observer interface {
	// OnAttempt is called once per attempt, as it completes.
	OnAttempt(ctx context.Context, ev AttemptEvent)

	// OnStateTransition is called on every circuit state change.
	OnStateTransition(ctx context.Context, ev StateTransition)

	// OnOperation is called once per executor operation, after it
	// resolves or is rejected.
	OnOperation(ctx context.Context, ev OperationEvent)
}
