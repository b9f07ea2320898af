package ratelimit

import (
	"fmt"
	"time"
)

// Algorithm identifies a rate limiting algorithm.
type Algorithm string

const (
	// AlgorithmFixedWindow counts requests per aligned time slot.
	AlgorithmFixedWindow Algorithm = "fixed_window"

	// AlgorithmSlidingWindow weights the previous slot by its overlap with
	// the trailing window.
	AlgorithmSlidingWindow Algorithm = "sliding_window"

	// AlgorithmTokenBucket refills tokens continuously and spends one per request.
	AlgorithmTokenBucket Algorithm = "token_bucket"

	// AlgorithmLeakyBucket drains a fixed-capacity queue at a constant rate.
	AlgorithmLeakyBucket Algorithm = "leaky_bucket"
)

// Algorithms lists every algorithm tag known to the engine.
var Algorithms = []Algorithm{
	AlgorithmFixedWindow,
	AlgorithmSlidingWindow,
	AlgorithmTokenBucket,
	AlgorithmLeakyBucket,
}

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// IsValid checks if the algorithm is a recognized value.
func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmFixedWindow, AlgorithmSlidingWindow, AlgorithmTokenBucket, AlgorithmLeakyBucket:
		return true
	default:
		return false
	}
}

// FailureStrategy describes what to do when the shared store fails.
type FailureStrategy string

const (
	// FailOpen allows the request without quota information.
	FailOpen FailureStrategy = "fail-open"

	// FailClosed rejects the request as unavailable.
	FailClosed FailureStrategy = "fail-closed"

	// LocalFallback answers from the in-process fixed window limiter.
	LocalFallback FailureStrategy = "local-fallback"
)

// String returns the string representation of the strategy.
func (s FailureStrategy) String() string {
	return string(s)
}

// IsValid checks if the strategy is a recognized value. The empty value is
// valid and means FailOpen.
func (s FailureStrategy) IsValid() bool {
	switch s {
	case "", FailOpen, FailClosed, LocalFallback:
		return true
	default:
		return false
	}
}

// orDefault returns FailOpen for the empty strategy.
func (s FailureStrategy) orDefault() FailureStrategy {
	if s == "" {
		return FailOpen
	}
	return s
}

// Policy is an immutable quota definition attached to a route.
type Policy struct {
	// Limit is the maximum number of units per window (bucket capacity for
	// the bucket algorithms).
	Limit int `yaml:"limit"`

	// WindowSeconds is the window length in whole seconds.
	WindowSeconds int `yaml:"window_seconds"`

	// Algorithm selects how the quota is enforced.
	Algorithm Algorithm `yaml:"algorithm"`

	// FailureStrategy applies when the shared store fails. Empty means fail-open.
	FailureStrategy FailureStrategy `yaml:"failure_strategy"`
}

// Validate checks the policy before any store call is made.
//
// Returns ErrInvalidPolicy for non-positive limits or windows and unknown
// failure strategies, and ErrUnsupportedAlgorithm for unknown algorithms.
func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidPolicy, p.Limit)
	}
	if p.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds must be positive, got %d", ErrInvalidPolicy, p.WindowSeconds)
	}
	if !p.FailureStrategy.IsValid() {
		return fmt.Errorf("%w: unknown failure_strategy %q", ErrInvalidPolicy, p.FailureStrategy)
	}
	if !p.Algorithm.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, p.Algorithm)
	}
	return nil
}

// Window returns the window length as a duration.
func (p Policy) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

// Rate returns the refill or leak rate in units per second.
func (p Policy) Rate() float64 {
	return float64(p.Limit) / float64(p.WindowSeconds)
}

// Strategy returns the effective failure strategy.
func (p Policy) Strategy() FailureStrategy {
	return p.FailureStrategy.orDefault()
}

// String returns a compact representation for logs.
func (p Policy) String() string {
	return fmt.Sprintf("%s(%d/%ds, %s)", p.Algorithm, p.Limit, p.WindowSeconds, p.Strategy())
}
