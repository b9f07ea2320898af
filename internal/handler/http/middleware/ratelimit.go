package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"rategate/internal/handler/http/respond"
	"rategate/pkg/ratelimit"
)

// Decider makes rate limit decisions. *ratelimit.Orchestrator implements it.
type Decider interface {
	Decide(ctx context.Context, key string, policy ratelimit.Policy) ratelimit.Decision
}

// RateLimiterConfig holds configuration for the rate limit middleware.
type RateLimiterConfig struct {
	// Decider answers each check. Required.
	Decider Decider

	// Resolver derives the client identity.
	// Default: NewKeyResolver(nil, nil)
	Resolver *KeyResolver

	// CheckTimeout bounds a single decision. Zero disables the bound.
	CheckTimeout time.Duration

	// Clock provides time abstraction for testing
	Clock ratelimit.Clock

	// Logger receives denial and error logs.
	// Default: slog.Default()
	Logger *slog.Logger
}

// RateLimiter applies per-route rate limit policies to HTTP handlers.
type RateLimiter struct {
	config RateLimiterConfig
}

// NewRateLimiter creates the middleware factory.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Resolver == nil {
		config.Resolver = NewKeyResolver(nil, nil)
	}
	if config.Clock == nil {
		config.Clock = &ratelimit.SystemClock{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RateLimiter{config: config}
}

// rateLimitErrorBody is the JSON body of a 429 response.
type rateLimitErrorBody struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int64  `json:"retry_after_seconds"`
	Limit             int    `json:"limit"`
	WindowSeconds     int    `json:"window_seconds"`
}

// Limit returns middleware enforcing policy on the route named route.
//
// Headers:
//   - X-RateLimit-Limit: always
//   - X-RateLimit-Remaining, X-RateLimit-Reset: whenever the decision carries
//     quota information, fallback answers included
//   - Retry-After: on 429
//
// Denied requests get 429 Too Many Requests. Requests for which no decision
// could be made (fail-closed store failure or a broken policy) get 503.
func (rl *RateLimiter) Limit(route string, policy ratelimit.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := rl.config.Resolver.Resolve(r)
			if err != nil {
				rl.config.Logger.Error("rate limiter: identity resolution failed",
					slog.String("route", route),
					slog.String("remote_addr", r.RemoteAddr),
					slog.Any("error", err),
				)
				respond.JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}

			ctx := r.Context()
			if rl.config.CheckTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, rl.config.CheckTimeout)
				defer cancel()
			}

			decision := rl.config.Decider.Decide(ctx, identity.Key(route), policy)
			setRateLimitHeaders(w, decision)

			switch decision.Outcome {
			case ratelimit.OutcomeDenied:
				rl.writeDenied(w, r, route, identity, decision)
				return

			case ratelimit.OutcomeUnavailable:
				rl.config.Logger.Warn("rate limiter: no decision, rejecting request",
					slog.String("route", route),
					slog.String("identity", string(identity.Kind)),
					slog.Bool("degraded", decision.Degraded),
					slog.Any("error", decision.Err),
				)
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rate_limiter_unavailable"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) writeDenied(w http.ResponseWriter, r *http.Request, route string, identity Identity, decision ratelimit.Decision) {
	retryAfter := decision.Result.RetryAfterSeconds(rl.config.Clock.Now())
	if retryAfter < 1 {
		retryAfter = 1
	}

	rl.config.Logger.Warn("rate limit exceeded",
		slog.String("route", route),
		slog.String("identity", string(identity.Kind)),
		slog.String("policy", decision.Policy.String()),
		slog.Int64("retry_after", retryAfter),
		slog.Bool("degraded", decision.Degraded),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
	)

	w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	respond.JSON(w, http.StatusTooManyRequests, rateLimitErrorBody{
		Error:             "rate_limit_exceeded",
		Message:           "Too many requests. Please try again in " + strconv.FormatInt(retryAfter, 10) + " seconds.",
		RetryAfterSeconds: retryAfter,
		Limit:             decision.Policy.Limit,
		WindowSeconds:     decision.Policy.WindowSeconds,
	})
}

func setRateLimitHeaders(w http.ResponseWriter, decision ratelimit.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Policy.Limit))
	if !decision.HasResult {
		return
	}
	h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Result.ResetAt, 10))
}
