package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration validates that a duration is positive (greater than zero).
//
// Used for connect timeouts and breaker windows where zero makes no sense.
//
// Example:
//
//	if err := ValidatePositiveDuration(openTimeout); err != nil {
//	    return fmt.Errorf("invalid open timeout: %w", err)
//	}
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateDurationRange validates that a duration is within [min, max].
//
// Example:
//
//	// Per-check timeout may be disabled (0) but never longer than 30s
//	if err := ValidateDurationRange(timeout, 0, 30*time.Second); err != nil {
//	    return fmt.Errorf("invalid check timeout: %w", err)
//	}
func ValidateDurationRange(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if d < min {
		return fmt.Errorf("duration %v is below minimum %v", d, min)
	}

	if d > max {
		return fmt.Errorf("duration %v exceeds maximum %v", d, max)
	}

	return nil
}
