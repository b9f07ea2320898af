package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// envValue parses the variable named key with parse. Unset or blank values
// yield def silently; values parse rejects yield def with a warning.
func envValue[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}

	v, err := parse(raw)
	if err != nil {
		slog.Warn("ignoring malformed environment variable",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Any("default", def),
			slog.String("error", err.Error()))
		return def
	}
	return v
}

// GetEnvString returns the variable named key verbatim, or def when it is
// unset or empty.
func GetEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetEnvInt reads a base-10 integer such as RATELIMIT_FALLBACK_MAX_KEYS.
func GetEnvInt(key string, def int) int {
	return envValue(key, def, strconv.Atoi)
}

// GetEnvFloat reads a float such as RATELIMIT_CB_FAILURE_RATIO.
func GetEnvFloat(key string, def float64) float64 {
	return envValue(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// GetEnvBool reads a flag such as RATELIMIT_CB_ENABLED in any form
// strconv.ParseBool accepts.
func GetEnvBool(key string, def bool) bool {
	return envValue(key, def, strconv.ParseBool)
}

// GetEnvDuration reads a Go duration string such as RATELIMIT_CHECK_TIMEOUT=250ms.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	return envValue(key, def, time.ParseDuration)
}

// GetEnvStringList splits a comma-separated variable, dropping blank items.
// A list with no items left yields def.
func GetEnvStringList(key string, def []string) []string {
	items := envValue(key, []string(nil), func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	})
	if len(items) == 0 {
		return def
	}
	return items
}
