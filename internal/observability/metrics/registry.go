// Package metrics holds the process-level Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels requests that no route pattern matched.
const UnmatchedRoute = "unmatched"

// HTTP metrics. The route label is the matched ServeMux pattern, never the
// raw path, so cardinality stays bounded by the route table.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "route"},
	)

	// HTTPRequestsInFlight tracks requests currently being served.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Background job metrics.
var (
	// OperationDuration measures named background operations such as the
	// fallback sweep.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "operation_duration_seconds",
			Help:    "Duration of background operations in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)

	// FallbackSweptKeysTotal counts fallback entries removed by the sweep.
	FallbackSweptKeysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_fallback_swept_keys_total",
			Help: "Total number of expired local fallback entries removed by the sweep",
		},
	)
)

// RecordHTTPRequest records a completed request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration, responseSize int) {
	if route == "" {
		route = UnmatchedRoute
	}
	code := strconv.Itoa(status)

	HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, route).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation.
func RecordOperationDuration(operation string, duration time.Duration) {
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFallbackSweep records one sweep pass.
func RecordFallbackSweep(removed int, duration time.Duration) {
	RecordOperationDuration("fallback_sweep", duration)
	if removed > 0 {
		FallbackSweptKeysTotal.Add(float64(removed))
	}
}
