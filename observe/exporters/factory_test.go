package exporters

import (
	"context"
	"testing"
)

func TestNewTracingExporter(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"stdout", "none", ""} {
		exp, err := NewTracingExporter(ctx, name)
		if err != nil {
			t.Errorf("NewTracingExporter(%q) error = %v", name, err)
			continue
		}
		if exp == nil {
			t.Errorf("NewTracingExporter(%q) = nil", name)
			continue
		}
		_ = exp.Shutdown(ctx)
	}

	if _, err := NewTracingExporter(ctx, "jaeger"); err == nil {
		t.Error("NewTracingExporter(jaeger) error = nil, want unknown exporter error")
	}
}

func TestNewTracingExporter_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	if _, err := NewTracingExporter(context.Background(), "otlp"); err == nil {
		t.Error("NewTracingExporter(otlp) error = nil, want missing endpoint error")
	}
}

func TestNewMetricsReader(t *testing.T) {
	ctx := context.Background()

	for _, name := range []string{"stdout", "none", ""} {
		reader, err := NewMetricsReader(ctx, name)
		if err != nil {
			t.Errorf("NewMetricsReader(%q) error = %v", name, err)
			continue
		}
		if reader == nil {
			t.Errorf("NewMetricsReader(%q) = nil", name)
			continue
		}
		_ = reader.Shutdown(ctx)
	}

	if _, err := NewMetricsReader(ctx, "statsd"); err == nil {
		t.Error("NewMetricsReader(statsd) error = nil, want unknown exporter error")
	}
}

func TestNewMetricsReader_OTLPRequiresEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	if _, err := NewMetricsReader(context.Background(), "otlp"); err == nil {
		t.Error("NewMetricsReader(otlp) error = nil, want missing endpoint error")
	}
}
