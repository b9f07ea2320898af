package ratelimit

import (
	"fmt"
	"time"
)

// DefaultKeyPrefix namespaces every key the engine writes to the shared store.
const DefaultKeyPrefix = "ratelimit"

// Config contains the engine-wide settings shared by every route.
//
// Per-route quotas live in Policy; this struct holds what is process-wide:
// store key namespace, fallback capacity, per-check timeout and circuit
// breaker tuning.
type Config struct {
	// KeyPrefix namespaces store keys: <prefix>:<fw|sw|tb|lb>:<key>[...]
	KeyPrefix string

	// CheckTimeout bounds a single decision (store round trips included).
	// Zero disables the bound.
	CheckTimeout time.Duration

	// Maximum number of keys the local fallback limiter keeps in memory
	FallbackMaxKeys int

	// Cron spec for sweeping expired fallback entries (e.g. "@every 1m")
	FallbackSweepSpec string

	// Circuit breaker settings
	BreakerEnabled      bool
	BreakerFailureRatio float64       // Open when failures/requests reaches this ratio
	BreakerMinRequests  uint32        // Minimum requests in the interval before the ratio applies
	BreakerOpenTimeout  time.Duration // Try half-open state after this timeout
}

// Validate checks if the Config is valid.
//
// Returns an error if any configuration values are invalid.
func (c *Config) Validate() error {
	if c.KeyPrefix == "" {
		return fmt.Errorf("KeyPrefix cannot be empty")
	}
	if c.CheckTimeout < 0 {
		return fmt.Errorf("CheckTimeout must be non-negative, got %s", c.CheckTimeout)
	}
	if c.FallbackMaxKeys <= 0 {
		return fmt.Errorf("FallbackMaxKeys must be positive, got %d", c.FallbackMaxKeys)
	}
	if c.FallbackSweepSpec == "" {
		return fmt.Errorf("FallbackSweepSpec cannot be empty")
	}

	if c.BreakerEnabled {
		if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
			return fmt.Errorf("BreakerFailureRatio must be in (0, 1], got %v", c.BreakerFailureRatio)
		}
		if c.BreakerOpenTimeout <= 0 {
			return fmt.Errorf("BreakerOpenTimeout must be positive, got %s", c.BreakerOpenTimeout)
		}
	}

	return nil
}

// ApplyDefaults sets safe default values for any missing or zero configuration values.
func (c *Config) ApplyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.FallbackMaxKeys == 0 {
		c.FallbackMaxKeys = 10000 // Maximum 10,000 unique clients in memory
	}
	if c.FallbackSweepSpec == "" {
		c.FallbackSweepSpec = "@every 1m"
	}

	if c.BreakerFailureRatio == 0 {
		c.BreakerFailureRatio = 0.6
	}
	if c.BreakerMinRequests == 0 {
		c.BreakerMinRequests = 10
	}
	if c.BreakerOpenTimeout == 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
}

// DefaultConfig returns a Config with safe default values.
//
// This is useful for testing and as a starting point for configuration.
func DefaultConfig() *Config {
	config := &Config{
		CheckTimeout:   250 * time.Millisecond,
		BreakerEnabled: true,
	}
	config.ApplyDefaults()
	return config
}

// Options configures the algorithm limiters.
type Options struct {
	// Prefix namespaces store keys. Default: DefaultKeyPrefix
	Prefix string

	// Clock provides time operations for testing.
	// Default: SystemClock
	Clock Clock
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultKeyPrefix
	}
	if o.Clock == nil {
		o.Clock = &SystemClock{}
	}
	return o
}
