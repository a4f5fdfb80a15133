package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver records resilience events as OpenTelemetry metrics.
type MetricsObserver struct {
	attempts        metric.Int64Counter
	attemptErrors   metric.Int64Counter
	attemptDuration metric.Float64Histogram

	operations        metric.Int64Counter
	operationErrors   metric.Int64Counter
	rejections        metric.Int64Counter
	operationDuration metric.Float64Histogram

	transitions metric.Int64Counter
}

// NewMetricsObserver creates a metrics observer on the given meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	attempts, err := meter.Int64Counter(
		"resilience.attempts.total",
		metric.WithDescription("Total number of attempts against guarded dependencies"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptErrors, err := meter.Int64Counter(
		"resilience.attempts.errors",
		metric.WithDescription("Total number of failed attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	attemptDuration, err := meter.Float64Histogram(
		"resilience.attempt.duration_ms",
		metric.WithDescription("Attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	operations, err := meter.Int64Counter(
		"resilience.operations.total",
		metric.WithDescription("Total number of executor operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	operationErrors, err := meter.Int64Counter(
		"resilience.operations.errors",
		metric.WithDescription("Total number of failed executor operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"resilience.operations.rejected",
		metric.WithDescription("Total number of operations rejected by an open circuit"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"resilience.operation.duration_ms",
		metric.WithDescription("Executor operation duration in milliseconds, including backoff"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"resilience.circuit.transitions",
		metric.WithDescription("Total number of circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsObserver{
		attempts:          attempts,
		attemptErrors:     attemptErrors,
		attemptDuration:   attemptDuration,
		operations:        operations,
		operationErrors:   operationErrors,
		rejections:        rejections,
		operationDuration: operationDuration,
		transitions:       transitions,
	}, nil
}

func (m *MetricsObserver) OnAttempt(ctx context.Context, ev AttemptEvent) {
	opt := metric.WithAttributes(
		attribute.String("resilience.name", ev.Name),
		attribute.String("resilience.mode", ev.Mode),
	)

	m.attempts.Add(ctx, 1, opt)
	if ev.Err != nil {
		m.attemptErrors.Add(ctx, 1, opt)
	}
	m.attemptDuration.Record(ctx, float64(ev.Elapsed.Milliseconds()), opt)
}

func (m *MetricsObserver) OnStateTransition(ctx context.Context, ev StateTransition) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resilience.name", ev.Name),
		attribute.String("circuit.from", ev.From),
		attribute.String("circuit.to", ev.To),
	))
}

func (m *MetricsObserver) OnOperation(ctx context.Context, ev OperationEvent) {
	opt := metric.WithAttributes(
		attribute.String("resilience.name", ev.Name),
		attribute.String("resilience.mode", ev.Mode),
	)

	m.operations.Add(ctx, 1, opt)
	if ev.Rejected {
		m.rejections.Add(ctx, 1, opt)
	}
	if ev.Err != nil {
		m.operationErrors.Add(ctx, 1, opt)
	}
	m.operationDuration.Record(ctx, float64(ev.Elapsed.Milliseconds()), opt)
}

var _ Observer = (*MetricsObserver)(nil)
