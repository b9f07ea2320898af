package config

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"rategate/pkg/ratelimit"
)

// LoadRateLimitConfig loads the engine-wide rate limiting configuration from
// environment variables.
//
// Invalid values are logged as warnings and replaced with safe defaults
// instead of failing.
//
// Environment variables:
//   - RATELIMIT_KEY_PREFIX: Store key namespace (default: ratelimit)
//   - RATELIMIT_CHECK_TIMEOUT: Per-decision timeout, 0 disables (default: 250ms)
//   - RATELIMIT_FALLBACK_MAX_KEYS: Keys held by the local fallback limiter (default: 10000)
//   - RATELIMIT_FALLBACK_SWEEP: Cron spec for the fallback sweep (default: @every 1m)
//   - RATELIMIT_CB_ENABLED: Guard store calls with a circuit breaker (default: true)
//   - RATELIMIT_CB_FAILURE_RATIO: Failure ratio that opens the breaker (default: 0.6)
//   - RATELIMIT_CB_MIN_REQUESTS: Requests before the ratio applies (default: 10)
//   - RATELIMIT_CB_OPEN_TIMEOUT: Time before a half-open probe (default: 30s)
//
// Returns:
//   - *ratelimit.Config: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
func LoadRateLimitConfig() (*ratelimit.Config, error) {
	defaults := ratelimit.DefaultConfig()
	config := &ratelimit.Config{}

	config.KeyPrefix = GetEnvString("RATELIMIT_KEY_PREFIX", defaults.KeyPrefix)

	checkTimeout := GetEnvDuration("RATELIMIT_CHECK_TIMEOUT", defaults.CheckTimeout)
	if err := ValidateDurationRange(checkTimeout, 0, 30*time.Second); err != nil {
		slog.Warn("invalid RATELIMIT_CHECK_TIMEOUT, using default",
			slog.String("value", checkTimeout.String()),
			slog.String("default", defaults.CheckTimeout.String()),
			slog.String("error", err.Error()))
		checkTimeout = defaults.CheckTimeout
	}
	config.CheckTimeout = checkTimeout

	maxKeys := GetEnvInt("RATELIMIT_FALLBACK_MAX_KEYS", defaults.FallbackMaxKeys)
	if maxKeys <= 0 {
		slog.Warn("invalid RATELIMIT_FALLBACK_MAX_KEYS, using default",
			slog.Int("value", maxKeys),
			slog.Int("default", defaults.FallbackMaxKeys))
		maxKeys = defaults.FallbackMaxKeys
	}
	config.FallbackMaxKeys = maxKeys

	sweepSpec := GetEnvString("RATELIMIT_FALLBACK_SWEEP", defaults.FallbackSweepSpec)
	if _, err := cron.ParseStandard(sweepSpec); err != nil {
		slog.Warn("invalid RATELIMIT_FALLBACK_SWEEP, using default",
			slog.String("value", sweepSpec),
			slog.String("default", defaults.FallbackSweepSpec),
			slog.String("error", err.Error()))
		sweepSpec = defaults.FallbackSweepSpec
	}
	config.FallbackSweepSpec = sweepSpec

	// Circuit breaker
	config.BreakerEnabled = GetEnvBool("RATELIMIT_CB_ENABLED", defaults.BreakerEnabled)

	ratio := GetEnvFloat("RATELIMIT_CB_FAILURE_RATIO", defaults.BreakerFailureRatio)
	if ratio <= 0 || ratio > 1 {
		slog.Warn("invalid RATELIMIT_CB_FAILURE_RATIO, using default",
			slog.Float64("value", ratio),
			slog.Float64("default", defaults.BreakerFailureRatio))
		ratio = defaults.BreakerFailureRatio
	}
	config.BreakerFailureRatio = ratio

	minRequests := GetEnvInt("RATELIMIT_CB_MIN_REQUESTS", int(defaults.BreakerMinRequests))
	if minRequests <= 0 {
		slog.Warn("invalid RATELIMIT_CB_MIN_REQUESTS, using default",
			slog.Int("value", minRequests),
			slog.Int("default", int(defaults.BreakerMinRequests)))
		minRequests = int(defaults.BreakerMinRequests)
	}
	config.BreakerMinRequests = uint32(minRequests) // #nosec G115 -- validated positive above

	openTimeout := GetEnvDuration("RATELIMIT_CB_OPEN_TIMEOUT", defaults.BreakerOpenTimeout)
	if err := ValidatePositiveDuration(openTimeout); err != nil {
		slog.Warn("invalid RATELIMIT_CB_OPEN_TIMEOUT, using default",
			slog.String("value", openTimeout.String()),
			slog.String("default", defaults.BreakerOpenTimeout.String()),
			slog.String("error", err.Error()))
		openTimeout = defaults.BreakerOpenTimeout
	}
	config.BreakerOpenTimeout = openTimeout

	// Validate the entire configuration
	if err := config.Validate(); err != nil {
		slog.Warn("rate limit configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}

// RedisConfig holds connection settings for the shared store.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// LoadRedisConfig loads Redis connection settings from environment variables.
//
// Environment variables:
//   - RATELIMIT_REDIS_ADDR: host:port (default: localhost:6379)
//   - RATELIMIT_REDIS_PASSWORD: AUTH password (default: empty)
//   - RATELIMIT_REDIS_DB: Database index (default: 0)
//   - RATELIMIT_REDIS_DIAL_TIMEOUT: Connect timeout (default: 2s)
func LoadRedisConfig() RedisConfig {
	db := GetEnvInt("RATELIMIT_REDIS_DB", 0)
	if db < 0 {
		slog.Warn("invalid RATELIMIT_REDIS_DB, using default",
			slog.Int("value", db),
			slog.Int("default", 0))
		db = 0
	}

	dialTimeout := GetEnvDuration("RATELIMIT_REDIS_DIAL_TIMEOUT", 2*time.Second)
	if err := ValidatePositiveDuration(dialTimeout); err != nil {
		slog.Warn("invalid RATELIMIT_REDIS_DIAL_TIMEOUT, using default",
			slog.String("value", dialTimeout.String()),
			slog.String("default", "2s"),
			slog.String("error", err.Error()))
		dialTimeout = 2 * time.Second
	}

	return RedisConfig{
		Addr:        GetEnvString("RATELIMIT_REDIS_ADDR", "localhost:6379"),
		Password:    GetEnvString("RATELIMIT_REDIS_PASSWORD", ""),
		DB:          db,
		DialTimeout: dialTimeout,
	}
}
