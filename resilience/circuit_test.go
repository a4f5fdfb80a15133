package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source for breaker tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(t *testing.T, config CircuitBreakerConfig) *CircuitBreaker {
	t.Helper()
	cb, err := NewCircuitBreaker(config)
	if err != nil {
		t.Fatalf("NewCircuitBreaker() error = %v", err)
	}
	return cb
}

func TestNewCircuitBreaker_Validation(t *testing.T) {
	valid := CircuitBreakerConfig{
		FailureThreshold:         5,
		HalfOpenSuccessThreshold: 2,
		ResetTimeout:             time.Second,
	}

	tests := []struct {
		name   string
		mutate func(*CircuitBreakerConfig)
	}{
		{"zero failure threshold", func(c *CircuitBreakerConfig) { c.FailureThreshold = 0 }},
		{"negative failure threshold", func(c *CircuitBreakerConfig) { c.FailureThreshold = -1 }},
		{"zero half-open success threshold", func(c *CircuitBreakerConfig) { c.HalfOpenSuccessThreshold = 0 }},
		{"negative half-open max probes", func(c *CircuitBreakerConfig) { c.HalfOpenMaxProbes = -1 }},
		{"zero reset timeout", func(c *CircuitBreakerConfig) { c.ResetTimeout = 0 }},
		{"negative reset timeout", func(c *CircuitBreakerConfig) { c.ResetTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewCircuitBreaker(cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("NewCircuitBreaker() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	if _, err := NewCircuitBreaker(valid); err != nil {
		t.Errorf("NewCircuitBreaker(valid) error = %v", err)
	}
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Second,
	})

	if cb.config.HalfOpenMaxProbes != 1 {
		t.Errorf("HalfOpenMaxProbes = %d, want 1", cb.config.HalfOpenMaxProbes)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensExactlyAtThreshold(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         3,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("after %d failures, state = %v, want closed", i+1, cb.State())
		}
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("after 3 failures, state = %v, want open", cb.State())
	}

	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_AllowDoesNotMutateCountersWhenClosed(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         2,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	cb.RecordFailure()

	for i := 0; i < 100; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
	}

	m := cb.Metrics()
	if m.Failures != 1 {
		t.Errorf("Failures after repeated Allow = %d, want 1", m.Failures)
	}
	if m.State != StateClosed {
		t.Errorf("State = %v, want closed", m.State)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         3,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess() // full reset, not decrement
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed (success reset the count)", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want open", cb.State())
	}
}

func TestCircuitBreaker_ResetTimeoutBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             10 * time.Second,
		Clock:                    clock.Now,
	})

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	clock.Advance(10*time.Second - time.Nanosecond)
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() just before timeout = %v, want ErrCircuitOpen", err)
	}

	clock.Advance(time.Nanosecond)
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() exactly at timeout = %v, want nil (inclusive boundary)", err)
	}
	if cb.state != StateHalfOpen {
		t.Errorf("state = %v, want half-open", cb.state)
	}
}

func TestCircuitBreaker_HalfOpenProbeGate(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 2,
		HalfOpenMaxProbes:        1,
		ResetTimeout:             time.Second,
		Clock:                    clock.Now,
	})

	cb.RecordFailure()
	clock.Advance(time.Second)

	// First caller becomes the probe.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() first probe = %v", err)
	}

	// Concurrent callers are rejected while the probe is in flight.
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() second concurrent probe = %v, want ErrCircuitOpen", err)
	}

	// Resolving the probe frees the slot for the next one.
	cb.RecordSuccess()
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after probe resolved = %v, want nil", err)
	}
}

func TestCircuitBreaker_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         2,
		HalfOpenSuccessThreshold: 2,
		HalfOpenMaxProbes:        2,
		ResetTimeout:             30 * time.Second,
		Clock:                    clock.Now,
		OnStateChange: func(from, to State, at time.Time) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	clock.Advance(30 * time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after reset timeout = %v", err)
	}
	cb.RecordSuccess()

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() second probe = %v", err)
	}
	cb.RecordSuccess()

	m := cb.Metrics()
	if m.State != StateClosed {
		t.Errorf("state = %v, want closed", m.State)
	}
	if m.Failures != 0 || m.Successes != 0 {
		t.Errorf("counters = (%d, %d), want (0, 0) after closing", m.Failures, m.Successes)
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 3,
		HalfOpenMaxProbes:        3,
		ResetTimeout:             time.Second,
		Clock:                    clock.Now,
	})

	cb.RecordFailure()
	clock.Advance(time.Second)

	// Accumulate successes below the close threshold, then fail a probe.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	cb.RecordSuccess()
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	openedAt := clock.Now()
	cb.RecordFailure()

	if cb.state != StateOpen {
		t.Fatalf("state = %v, want open (zero tolerance)", cb.state)
	}
	if !cb.lastTransition.Equal(openedAt) {
		t.Errorf("lastTransition = %v, want %v (timeout restarted)", cb.lastTransition, openedAt)
	}

	// Prior successes do not survive re-entry into half-open.
	clock.Advance(time.Second)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	if cb.successes != 0 {
		t.Errorf("successes after re-entering half-open = %d, want 0", cb.successes)
	}
}

func TestCircuitBreaker_DiscardReleasesProbeWithoutCounting(t *testing.T) {
	clock := newFakeClock()
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Second,
		Clock:                    clock.Now,
	})

	cb.RecordFailure()
	clock.Advance(time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	cb.discard()

	if cb.state != StateHalfOpen {
		t.Errorf("state = %v, want half-open", cb.state)
	}
	if cb.successes != 0 {
		t.Errorf("successes = %d, want 0", cb.successes)
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after discard = %v, want nil (slot released)", err)
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         2,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	testErr := errors.New("downstream failed")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error { return testErr })
		if err != testErr {
			t.Errorf("Execute() error = %v, want %v", err, testErr)
		}
	}

	err := cb.Execute(ctx, func(ctx context.Context) error {
		t.Error("operation must not run when the circuit is open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() when open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         1,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after Reset = %v, want closed", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() after Reset = %v", err)
	}
}

func TestCircuitBreaker_CumulativeCounters(t *testing.T) {
	cb := newTestBreaker(t, CircuitBreakerConfig{
		FailureThreshold:         2,
		HalfOpenSuccessThreshold: 1,
		ResetTimeout:             time.Minute,
	})

	_ = cb.Allow()
	cb.RecordSuccess()
	_ = cb.Allow()
	cb.RecordFailure()
	_ = cb.Allow()
	cb.RecordFailure() // opens
	_ = cb.Allow()     // rejected

	m := cb.Metrics()
	if m.Executions != 3 {
		t.Errorf("Executions = %d, want 3", m.Executions)
	}
	if m.Rejections != 1 {
		t.Errorf("Rejections = %d, want 1", m.Rejections)
	}
	if m.TotalSuccesses != 1 {
		t.Errorf("TotalSuccesses = %d, want 1", m.TotalSuccesses)
	}
	if m.TotalFailures != 2 {
		t.Errorf("TotalFailures = %d, want 2", m.TotalFailures)
	}
}
