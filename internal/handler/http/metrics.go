package http

import (
	"net/http"
	"time"

	"rategate/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsMiddleware records request count, duration and response size.
//
// The route label is the pattern the ServeMux matched, which the mux writes
// into the same *http.Request it was given. MetricsMiddleware must therefore
// wrap the mux directly, with nothing in between that replaces the request.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		rec := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(rec, r)

		metrics.RecordHTTPRequest(r.Method, r.Pattern, rec.status, time.Since(start), rec.bytes)
	})
}

// MetricsHandler serves the union of the default registry and any extra
// gatherers, such as the rate limit engine's registry.
func MetricsHandler(extra ...prometheus.Gatherer) http.Handler {
	gatherers := append(prometheus.Gatherers{prometheus.DefaultGatherer}, extra...)
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
