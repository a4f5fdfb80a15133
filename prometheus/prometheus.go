// Package prometheus registers circuit breaker metrics with a Prometheus
// registerer, for callers who scrape client_golang directly rather than
// going through the OpenTelemetry pipeline.
package prometheus

import (
	"errors"
	"unicode/utf8"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonwraymond/fuse/resilience"
)

const (
	// MetricsNamespace is the common metric namespace (prefix).
	MetricsNamespace = "circuit_breaker"

	// OpenStateMetricName is the suffix of the open metric.
	OpenStateMetricName = "open"
	openStateMetricHelp = "One if the circuit is not in the closed state."

	// StateMetricName is the suffix of the state metric.
	StateMetricName = "state"
	stateMetricHelp = "Current circuit state: 0 closed, 1 open, 2 half-open."

	// ObservationsMetricName is the suffix of the observations metric.
	ObservationsMetricName = "observations_total"
	observationsMetricHelp = "Number of observations the circuit breaker recorded."

	// CallsMetricName is the suffix of the calls metric.
	CallsMetricName = "calls_total"
	callsMetricHelp = "Number of calls the circuit breaker admitted or rejected."

	// NameLabel is the label carrying the circuit breaker name.
	NameLabel = "name"
	// OutcomeLabel is the label carrying the observation outcome.
	OutcomeLabel = "outcome"
	// DecisionLabel is the label carrying the gate decision.
	DecisionLabel = "decision"
)

// ErrInvalidBreakerName is returned when the breaker name is not valid UTF-8.
var ErrInvalidBreakerName = errors.New("invalid circuit breaker name")

// RegisterMetricsToDefaultRegisterer registers breaker metrics with the
// prometheus DefaultRegisterer, labeled with name.
func RegisterMetricsToDefaultRegisterer(name string, cb *resilience.CircuitBreaker) error {
	return RegisterMetrics(name, cb, prom.DefaultRegisterer)
}

// RegisterMetrics registers breaker metrics with the given registerer,
// labeled with name. Metrics are read lazily from the breaker's counters
// at scrape time.
func RegisterMetrics(name string, cb *resilience.CircuitBreaker, registerer prom.Registerer) error {
	if !utf8.ValidString(name) {
		return ErrInvalidBreakerName
	}

	factory := promauto.With(registerer)
	stateGauges(name, cb, factory)
	observationCounters(name, cb, factory)
	callCounters(name, cb, factory)
	return nil
}

func stateGauges(name string, cb *resilience.CircuitBreaker, factory promauto.Factory) {
	factory.NewGaugeFunc(
		prom.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        OpenStateMetricName,
			Help:        openStateMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name},
		},
		func() float64 {
			if cb.State() == resilience.StateClosed {
				return 0.0
			}
			return 1.0
		},
	)

	factory.NewGaugeFunc(
		prom.GaugeOpts{
			Namespace:   MetricsNamespace,
			Name:        StateMetricName,
			Help:        stateMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name},
		},
		func() float64 {
			return float64(cb.State())
		},
	)
}

func observationCounters(name string, cb *resilience.CircuitBreaker, factory promauto.Factory) {
	factory.NewCounterFunc(
		prom.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        ObservationsMetricName,
			Help:        observationsMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name, OutcomeLabel: "success"},
		},
		func() float64 {
			return float64(cb.Metrics().TotalSuccesses)
		},
	)

	factory.NewCounterFunc(
		prom.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        ObservationsMetricName,
			Help:        observationsMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name, OutcomeLabel: "failure"},
		},
		func() float64 {
			return float64(cb.Metrics().TotalFailures)
		},
	)
}

func callCounters(name string, cb *resilience.CircuitBreaker, factory promauto.Factory) {
	factory.NewCounterFunc(
		prom.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        CallsMetricName,
			Help:        callsMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name, DecisionLabel: "admitted"},
		},
		func() float64 {
			return float64(cb.Metrics().Executions)
		},
	)

	factory.NewCounterFunc(
		prom.CounterOpts{
			Namespace:   MetricsNamespace,
			Name:        CallsMetricName,
			Help:        callsMetricHelp,
			ConstLabels: prom.Labels{NameLabel: name, DecisionLabel: "rejected"},
		},
		func() float64 {
			return float64(cb.Metrics().Rejections)
		},
	)
}
