package ratelimit

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedAlgorithm is returned when a policy names an algorithm the
	// Selector does not know. It is a configuration error.
	ErrUnsupportedAlgorithm = errors.New("unsupported rate limit algorithm")

	// ErrInvalidPolicy is returned for non-positive limits or windows and
	// unknown failure strategies. It is a configuration error.
	ErrInvalidPolicy = errors.New("invalid rate limit policy")

	// ErrStoreUnavailable wraps network, timeout and connection failures
	// talking to the shared store.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")

	// ErrScriptRegistration wraps failures to register or run an atomic
	// routine. The Orchestrator treats it like ErrStoreUnavailable.
	ErrScriptRegistration = errors.New("rate limit script registration failed")

	// ErrScriptNotFound is returned by a Store when a script handle is no
	// longer registered (Redis NOSCRIPT).
	ErrScriptNotFound = errors.New("script not found in store")
)

// IsStoreFailure reports whether err is an operational store failure that the
// failure strategy applies to. Configuration errors return false.
func IsStoreFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrScriptRegistration) ||
		errors.Is(err, ErrScriptNotFound) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// storeError wraps err as ErrStoreUnavailable with the failing operation.
func storeError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrStoreUnavailable, op, key, err)
}
