package resilience

import (
	"context"
	"time"
)

// Operation is a guarded call against a dependency. The package makes no
// assumption about its nature; it only observes the returned error.
type Operation func(ctx context.Context) error

// AttemptOutcome describes a single completed attempt. It is produced once
// per attempt, handed to the attempt callback, and never retained.
type AttemptOutcome struct {
	// Attempt is the 1-based index of the attempt within one execution.
	Attempt int
	// Err is the attempt's error, nil on success.
	Err error
	// Started is when the attempt began.
	Started time.Time
	// Elapsed is how long the attempt took.
	Elapsed time.Duration
}

// Succeeded reports whether the attempt completed without error.
func (o AttemptOutcome) Succeeded() bool {
	return o.Err == nil
}

// AccountingMode selects what counts as one observation for circuit
// breaker accounting. It must be chosen explicitly; the zero value is
// rejected by NewExecutor.
type AccountingMode int

const (
	accountUnset AccountingMode = iota

	// AccountPerOperation reports one success or failure to the breaker
	// per Execute call, after the full retry sequence resolves. With this
	// mode the breaker's FailureThreshold counts failed operations, no
	// matter how many attempts each one consumed.
	AccountPerOperation

	// AccountPerAttempt reports every individual attempt to the breaker
	// as it completes. With this mode FailureThreshold counts failed
	// attempts, and the breaker may open mid-sequence, aborting the
	// remaining retries with ErrCircuitOpen.
	AccountPerAttempt
)

// String returns the string representation of the accounting mode.
func (m AccountingMode) String() string {
	switch m {
	case AccountPerOperation:
		return "per-operation"
	case AccountPerAttempt:
		return "per-attempt"
	default:
		return "unset"
	}
}

func (m AccountingMode) valid() bool {
	return m == AccountPerOperation || m == AccountPerAttempt
}
