// Package metrics registers HTTP and background job collectors on the
// Prometheus default registry.
//
// Rate limit decision metrics live with the engine in pkg/ratelimit, on
// their own registry; the /metrics handler gathers both.
//
//	start := time.Now()
//	removed := fallback.Sweep()
//	metrics.RecordFallbackSweep(removed, time.Since(start))
package metrics
