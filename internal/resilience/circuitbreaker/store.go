package circuitbreaker

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"

	"rategate/pkg/ratelimit"
)

// StoreBreakerName labels the shared store breaker in logs and metrics.
const StoreBreakerName = "ratelimit-store"

// StoreConfig returns the breaker configuration for rate limit store calls.
//
// Only store failures trip the breaker. Policy errors and requests canceled
// by their caller leave the counts untouched, so neither a misconfigured route
// nor clients hanging up can degrade every other route. Deadline expiry still
// counts: a store too slow to answer is a store failure.
func StoreConfig(cfg *ratelimit.Config) Config {
	return Config{
		Name:             StoreBreakerName,
		MaxRequests:      3,
		Interval:         cfg.BreakerOpenTimeout,
		Timeout:          cfg.BreakerOpenTimeout,
		FailureThreshold: cfg.BreakerFailureRatio,
		MinRequests:      cfg.BreakerMinRequests,
		IsFailure:        IsStoreBreakerFailure,
	}
}

// NewStoreBreaker creates the store breaker and reports its state to metrics.
// The initial closed state is recorded immediately.
func NewStoreBreaker(cfg *ratelimit.Config, metrics ratelimit.RateLimitMetrics) *CircuitBreaker {
	breakerCfg := StoreConfig(cfg)
	breakerCfg.OnStateChange = func(name string, to gobreaker.State) {
		metrics.RecordCircuitState(name, to.String())
	}

	cb := New(breakerCfg)
	metrics.RecordCircuitState(cb.Name(), cb.State().String())
	return cb
}

// IsStoreBreakerFailure reports whether err counts against the store breaker.
func IsStoreBreakerFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return ratelimit.IsStoreFailure(err)
}
