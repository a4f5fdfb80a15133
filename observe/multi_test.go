package observe

import (
	"context"
	"testing"
	"time"
)

type countingObserver struct {
	attempts    int
	transitions int
	operations  int
}

func (c *countingObserver) OnAttempt(ctx context.Context, ev AttemptEvent) { c.attempts++ }
func (c *countingObserver) OnStateTransition(ctx context.Context, ev StateTransition) {
	c.transitions++
}
func (c *countingObserver) OnOperation(ctx context.Context, ev OperationEvent) { c.operations++ }

func TestMultiObserver_FansOut(t *testing.T) {
	a := &countingObserver{}
	b := &countingObserver{}
	multi := MultiObserver{Observers: []Observer{a, nil, b}}

	ctx := context.Background()
	multi.OnAttempt(ctx, AttemptEvent{Attempt: 1})
	multi.OnAttempt(ctx, AttemptEvent{Attempt: 2})
	multi.OnStateTransition(ctx, StateTransition{From: "closed", To: "open", At: time.Now()})
	multi.OnOperation(ctx, OperationEvent{Attempts: 2})

	for i, obs := range []*countingObserver{a, b} {
		if obs.attempts != 2 || obs.transitions != 1 || obs.operations != 1 {
			t.Errorf("observer %d counts = (%d, %d, %d), want (2, 1, 1)",
				i, obs.attempts, obs.transitions, obs.operations)
		}
	}
}

func TestMultiObserver_Empty(t *testing.T) {
	var multi MultiObserver
	// Must not panic.
	multi.OnAttempt(context.Background(), AttemptEvent{})
	multi.OnStateTransition(context.Background(), StateTransition{})
	multi.OnOperation(context.Background(), OperationEvent{})
}

func TestNoopObserver(t *testing.T) {
	var obs Observer = NoopObserver{}
	// Must not panic.
	obs.OnAttempt(context.Background(), AttemptEvent{})
	obs.OnStateTransition(context.Background(), StateTransition{})
	obs.OnOperation(context.Background(), OperationEvent{})
}
