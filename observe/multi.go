package observe

import "context"

// MultiObserver fans out events to multiple observers. Nil entries are
// skipped.
type MultiObserver struct {
	Observers []Observer
}

func (m MultiObserver) OnAttempt(ctx context.Context, ev AttemptEvent) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnAttempt(ctx, ev)
		}
	}
}

func (m MultiObserver) OnStateTransition(ctx context.Context, ev StateTransition) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnStateTransition(ctx, ev)
		}
	}
}

func (m MultiObserver) OnOperation(ctx context.Context, ev OperationEvent) {
	for _, o := range m.Observers {
		if o != nil {
			o.OnOperation(ctx, ev)
		}
	}
}

var _ Observer = MultiObserver{}
