package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceObserver records executor operations as OpenTelemetry spans and
// attempts as events on the caller's active span.
//
// Operation spans are reconstructed from the event's elapsed time, so
// their start timestamps are accurate even though the span is opened
// after the fact.
type TraceObserver struct {
	tracer trace.Tracer
}

// NewTraceObserver creates an observer that writes spans to tracer.
func NewTraceObserver(tracer trace.Tracer) *TraceObserver {
	return &TraceObserver{tracer: tracer}
}

func (t *TraceObserver) OnAttempt(ctx context.Context, ev AttemptEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resilience.name", ev.Name),
		attribute.Int("resilience.attempt", ev.Attempt),
		attribute.Bool("resilience.attempt.error", ev.Err != nil),
		attribute.Float64("resilience.attempt.duration_ms", float64(ev.Elapsed.Milliseconds())),
	}
	span.AddEvent("resilience.attempt", trace.WithAttributes(attrs...))
}

func (t *TraceObserver) OnStateTransition(ctx context.Context, ev StateTransition) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.AddEvent("resilience.circuit.transition", trace.WithAttributes(
		attribute.String("resilience.name", ev.Name),
		attribute.String("circuit.from", ev.From),
		attribute.String("circuit.to", ev.To),
	))
}

func (t *TraceObserver) OnOperation(ctx context.Context, ev OperationEvent) {
	end := time.Now()
	start := end.Add(-ev.Elapsed)

	name := "resilience.execute"
	if ev.Name != "" {
		name = "resilience.execute." + ev.Name
	}

	_, span := t.tracer.Start(ctx, name,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("resilience.name", ev.Name),
			attribute.String("resilience.mode", ev.Mode),
			attribute.Int("resilience.attempts", ev.Attempts),
			attribute.Bool("resilience.rejected", ev.Rejected),
		),
	)

	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(end))
}

var _ Observer = (*TraceObserver)(nil)
