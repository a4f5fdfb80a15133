// Package observe provides the telemetry surface for resilience
// executors: an Observer interface receiving attempt, operation, and
// circuit state-transition events, plus ready-made sinks.
//
// Sinks can be composed with MultiObserver:
//
//	tel, err := observe.NewTelemetry(ctx, observe.Config{
//	    ServiceName: "payments",
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	metrics, err := observe.NewMetricsObserver(tel.Meter())
//	if err != nil {
//	    return err
//	}
//
//	obs := observe.MultiObserver{Observers: []observe.Observer{
//	    metrics,
//	    observe.NewLogObserver(tel.Logger()),
//	}}
//
// Observers are consumed, not produced: the executor invokes them and
// expects them to be concurrency-safe, fast, and panic-free.
package observe
