package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"rategate/internal/handler/http/requestid"
	"rategate/pkg/config"
)

// NewFromEnv creates the process logger on stdout.
//
// Environment variables:
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FORMAT: json or text (default: json)
func NewFromEnv() *slog.Logger {
	level := ParseLevel(config.GetEnvString("LOG_LEVEL", "info"))
	return New(os.Stdout, config.GetEnvString("LOG_FORMAT", "json"), level)
}

// New creates a logger writing to w. format "text" selects the human-readable
// handler; anything else selects JSON. Source locations are added at debug level.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID returns a new logger that includes the request ID from the context.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With(slog.String("request_id", reqID))
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
