package resilience

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through and failures accumulate
	// toward the failure threshold.
	StateClosed State = iota
	// StateOpen means calls are rejected without attempting the
	// dependency until the reset timeout elapses.
	StateOpen
	// StateHalfOpen means a bounded number of probe calls are allowed
	// through to test whether the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
