// Package health reports the health of guarded dependencies.
//
// A BreakerChecker maps a circuit breaker's state to a health status:
// closed is healthy, half-open is degraded (the dependency is being
// probed), open is unhealthy. An Aggregator combines checkers into one
// composite check, and the HTTP handlers expose the results as liveness,
// readiness, and detailed JSON endpoints.
//
//	agg := health.NewAggregator()
//	agg.Register("payments", health.NewBreakerChecker("payments", cb))
//
//	mux.HandleFunc("/healthz", health.LivenessHandler())
//	mux.HandleFunc("/readyz", health.ReadinessHandler(agg))
//	mux.HandleFunc("/health", health.DetailedHandler(agg))
package health
