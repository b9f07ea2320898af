// Package ratelimit provides a distributed rate limiting decision engine.
//
// The engine converts "consume one unit" calls into allow/deny decisions
// using one of four algorithms (fixed window, sliding window, token bucket,
// leaky bucket) whose state lives in a shared store. When the store cannot be
// reached, the Orchestrator applies the policy's failure strategy: fail open,
// fail closed, or degrade to an in-process fixed window.
//
// The engine is framework-agnostic. HTTP, gRPC or job runners call
// Orchestrator.Decide with an opaque client key and a Policy.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is the contract shared by every algorithm, the local fallback
// limiter and the Orchestrator.
type Limiter interface {
	// Consume attempts to take one unit of quota for key under policy.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout of store calls
	//   - key: Opaque client identity
	//   - policy: Quota definition for the route being accessed
	//
	// Returns the decision and an error if the shared store failed.
	Consume(ctx context.Context, key string, policy Policy) (Result, error)
}

// Store is the shared state store client the algorithms are built on.
//
// Implementations must provide server-side atomicity: Increment and
// EvalScript are each a single indivisible step with respect to other
// callers touching the same key. All methods must be safe for concurrent use.
type Store interface {
	// Increment atomically adds one to the counter at key and, when the
	// counter was just created, attaches ttl to it in the same step.
	//
	// Returns the counter value after the increment.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Get reads the integer counter at key. A missing key reads as 0.
	Get(ctx context.Context, key string) (int64, error)

	// LoadScript registers script source with the store and returns its
	// handle. Registering identical source twice returns the same handle.
	LoadScript(ctx context.Context, src string) (string, error)

	// EvalScript runs a previously registered script.
	//
	// The script must reply with a two-element array: an integer flag and a
	// numeric state value (integer, float or numeric string).
	// Returns ErrScriptNotFound when the store no longer knows the handle.
	EvalScript(ctx context.Context, handle string, keys []string, args ...interface{}) (ScriptReply, error)
}

// ScriptReply is the decoded reply of an atomic routine.
type ScriptReply struct {
	// Flag is 1 when the routine granted the unit, 0 otherwise.
	Flag int64

	// Value is the routine's state after the call (tokens or water level).
	Value float64
}

// Allowed reports whether the routine granted the unit.
func (r ScriptReply) Allowed() bool {
	return r.Flag == 1
}

// Breaker guards store calls. It matches the Execute signature of
// internal/resilience/circuitbreaker and gobreaker.
type Breaker interface {
	Execute(fn func() (interface{}, error)) (interface{}, error)
}

// RateLimitMetrics defines the interface for recording rate limiting metrics.
//
// Implementations can use Prometheus, StatsD, or custom metrics systems.
type RateLimitMetrics interface {
	// RecordDecision counts one decision.
	//
	// Parameters:
	//   - algorithm: Algorithm tag of the policy
	//   - outcome: "allowed", "denied" or "unavailable"
	RecordDecision(algorithm, outcome string)

	// RecordStoreFailure counts a store failure and the strategy applied to it.
	RecordStoreFailure(algorithm, strategy string)

	// RecordCheckDuration records how long a decision took end to end.
	RecordCheckDuration(algorithm string, duration time.Duration)

	// SetFallbackKeys records the number of keys held by the local fallback limiter.
	SetFallbackKeys(count int)

	// RecordFallbackEviction records keys evicted from the local fallback limiter.
	RecordFallbackEviction(count int)

	// RecordCircuitState records the state of a circuit breaker.
	//
	// Parameters:
	//   - breaker: Breaker name
	//   - state: "closed", "open" or "half-open"
	RecordCircuitState(breaker, state string)
}

// Clock provides an abstraction for time operations to enable testing.
//
// This interface allows for dependency injection of time functions,
// making it easy to test time-dependent behavior with fake clocks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
