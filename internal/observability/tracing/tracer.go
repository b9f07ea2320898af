package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "rategate/internal/observability/tracing"

// tracer delegates to the global provider, so it follows SetTracerProvider.
var tracer = otel.Tracer(instrumentationName)

// GetTracer returns the tracer used for HTTP server spans.
func GetTracer() trace.Tracer {
	return tracer
}

// ProviderConfig configures the process tracer provider.
type ProviderConfig struct {
	ServiceName    string
	ServiceVersion string

	// SampleRatio is the fraction of new root traces that are sampled.
	// Incoming sampled parents are always honored.
	SampleRatio float64

	// Exporters receive finished spans. With none, spans still carry IDs for
	// log correlation and X-Trace-Id, but nothing leaves the process.
	Exporters []sdktrace.SpanExporter
}

// InitProvider installs an SDK tracer provider and the W3C trace context
// propagator as process globals. The returned function flushes and shuts
// the provider down.
func InitProvider(cfg ProviderConfig) (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	))
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}
	for _, exporter := range cfg.Exporters {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
