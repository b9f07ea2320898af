package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements the RateLimitMetrics interface using Prometheus.
//
// Exposed series:
//   - ratelimit_decisions_total{algorithm,outcome}
//   - ratelimit_store_failures_total{algorithm,strategy}
//   - ratelimit_check_duration_seconds{algorithm}
//   - ratelimit_fallback_active_keys
//   - ratelimit_fallback_evictions_total
//   - ratelimit_circuit_state{breaker}
//
// All metrics use a custom registry for better testability and isolation.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	decisionsTotal     *prometheus.CounterVec
	storeFailuresTotal *prometheus.CounterVec

	// checkDuration buckets target sub-millisecond to a few milliseconds per
	// store round trip; anything near the check timeout lands in the top buckets.
	checkDuration *prometheus.HistogramVec

	fallbackKeys      prometheus.Gauge
	fallbackEvictions prometheus.Counter

	// circuitState values: 0 closed, 1 open, 2 half-open
	circuitState *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance with a custom registry.
//
// The registry can be passed to promhttp.HandlerFor() or combined with
// other gatherers to expose metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	decisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Total rate limit decisions by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"},
	)

	storeFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_store_failures_total",
			Help: "Total shared store failures by algorithm and applied failure strategy",
		},
		[]string{"algorithm", "strategy"},
	)

	checkDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ratelimit_check_duration_seconds",
			Help:    "Duration of rate limit decisions",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"algorithm"},
	)

	fallbackKeys := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_fallback_active_keys",
		Help: "Current number of keys held by the local fallback limiter",
	})

	fallbackEvictions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_fallback_evictions_total",
		Help: "Total LRU evictions from the local fallback limiter",
	})

	circuitState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_circuit_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"breaker"},
	)

	registry.MustRegister(
		decisionsTotal,
		storeFailuresTotal,
		checkDuration,
		fallbackKeys,
		fallbackEvictions,
		circuitState,
	)

	return &PrometheusMetrics{
		registry:           registry,
		decisionsTotal:     decisionsTotal,
		storeFailuresTotal: storeFailuresTotal,
		checkDuration:      checkDuration,
		fallbackKeys:       fallbackKeys,
		fallbackEvictions:  fallbackEvictions,
		circuitState:       circuitState,
	}
}

// Registry returns the Prometheus registry containing all rate limit metrics.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts one decision.
func (m *PrometheusMetrics) RecordDecision(algorithm, outcome string) {
	m.decisionsTotal.WithLabelValues(algorithm, outcome).Inc()
}

// RecordStoreFailure counts a store failure and the strategy applied to it.
func (m *PrometheusMetrics) RecordStoreFailure(algorithm, strategy string) {
	m.storeFailuresTotal.WithLabelValues(algorithm, strategy).Inc()
}

// RecordCheckDuration records the duration of a decision.
func (m *PrometheusMetrics) RecordCheckDuration(algorithm string, duration time.Duration) {
	m.checkDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
}

// SetFallbackKeys records the number of keys held by the fallback limiter.
func (m *PrometheusMetrics) SetFallbackKeys(count int) {
	m.fallbackKeys.Set(float64(count))
}

// RecordFallbackEviction records keys evicted from the fallback limiter.
func (m *PrometheusMetrics) RecordFallbackEviction(count int) {
	m.fallbackEvictions.Add(float64(count))
}

// RecordCircuitState records the current state of a circuit breaker.
//
// The state is mapped to a numeric gauge for Prometheus alerting:
//   - 0 = closed
//   - 1 = open
//   - 2 = half-open
func (m *PrometheusMetrics) RecordCircuitState(breaker, state string) {
	var stateValue float64
	switch state {
	case "open":
		stateValue = 1
	case "half-open":
		stateValue = 2
	default:
		stateValue = 0
	}
	m.circuitState.WithLabelValues(breaker).Set(stateValue)
}
