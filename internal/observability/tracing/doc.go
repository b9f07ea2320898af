// Package tracing wires OpenTelemetry into the HTTP server.
//
// InitProvider installs the SDK provider and propagator at startup and
// Middleware opens one server span per request. Rate limit decisions add
// their own child spans from the engine.
//
//	shutdown, err := tracing.InitProvider(tracing.ProviderConfig{ServiceName: "rategate", SampleRatio: 1})
//	defer shutdown(ctx)
//	handler := tracing.Middleware(mux)
package tracing
