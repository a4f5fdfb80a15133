package observe

import "context"

// NoopObserver implements Observer with no-op methods. Embed it to
// implement only the callbacks you need.
type NoopObserver struct{}

func (NoopObserver) OnAttempt(context.Context, AttemptEvent)            {}
func (NoopObserver) OnStateTransition(context.Context, StateTransition) {}
func (NoopObserver) OnOperation(context.Context, OperationEvent)        {}

var _ Observer = NoopObserver{}
