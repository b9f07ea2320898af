// Package observability groups the logging, metrics and tracing
// infrastructure of the service.
//
// Subpackages:
//   - logging: slog setup and request-scoped loggers
//   - metrics: Prometheus collectors for HTTP traffic and background jobs
//   - tracing: OpenTelemetry provider setup and HTTP server spans
package observability
