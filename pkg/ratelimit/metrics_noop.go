package ratelimit

import "time"

// NoOpMetrics implements the RateLimitMetrics interface with no-op implementations.
//
// This implementation is useful for:
// - Testing environments where metrics are not needed
// - Embedding the engine without a metrics backend
//
// All methods are no-ops and have minimal performance impact.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a new NoOpMetrics instance.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

// RecordDecision is a no-op implementation.
func (m *NoOpMetrics) RecordDecision(algorithm, outcome string) {}

// RecordStoreFailure is a no-op implementation.
func (m *NoOpMetrics) RecordStoreFailure(algorithm, strategy string) {}

// RecordCheckDuration is a no-op implementation.
func (m *NoOpMetrics) RecordCheckDuration(algorithm string, duration time.Duration) {}

// SetFallbackKeys is a no-op implementation.
func (m *NoOpMetrics) SetFallbackKeys(count int) {}

// RecordFallbackEviction is a no-op implementation.
func (m *NoOpMetrics) RecordFallbackEviction(count int) {}

// RecordCircuitState is a no-op implementation.
func (m *NoOpMetrics) RecordCircuitState(breaker, state string) {}
