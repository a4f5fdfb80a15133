package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	byName := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			byName[m.Name] = m
		}
	}
	return byName
}

func counterValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsObserver(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	obs, err := NewMetricsObserver(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetricsObserver() error = %v", err)
	}

	ctx := context.Background()
	obs.OnAttempt(ctx, AttemptEvent{Name: "db", Mode: "per-operation", Attempt: 1, Elapsed: 5 * time.Millisecond})
	obs.OnAttempt(ctx, AttemptEvent{Name: "db", Mode: "per-operation", Attempt: 2, Err: errors.New("fail")})
	obs.OnOperation(ctx, OperationEvent{Name: "db", Mode: "per-operation", Attempts: 2, Err: errors.New("fail")})
	obs.OnOperation(ctx, OperationEvent{Name: "db", Mode: "per-operation", Rejected: true})
	obs.OnStateTransition(ctx, StateTransition{Name: "db", From: "closed", To: "open", At: time.Now()})

	metrics := collectMetrics(t, reader)

	wantCounters := map[string]int64{
		"resilience.attempts.total":      2,
		"resilience.attempts.errors":     1,
		"resilience.operations.total":    2,
		"resilience.operations.errors":   1,
		"resilience.operations.rejected": 1,
		"resilience.circuit.transitions": 1,
	}
	for name, want := range wantCounters {
		m, ok := metrics[name]
		if !ok {
			t.Errorf("metric %q not recorded", name)
			continue
		}
		if got := counterValue(t, m); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}

	for _, name := range []string{"resilience.attempt.duration_ms", "resilience.operation.duration_ms"} {
		m, ok := metrics[name]
		if !ok {
			t.Errorf("histogram %q not recorded", name)
			continue
		}
		hist, ok := m.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Errorf("metric %q is %T, want Histogram[float64]", name, m.Data)
			continue
		}
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		if count != 2 {
			t.Errorf("%s count = %d, want 2", name, count)
		}
	}
}
