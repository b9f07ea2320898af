package http

import (
	"log/slog"
	"net/http"

	"rategate/internal/config"
	"rategate/internal/handler/http/auth"
	"rategate/internal/handler/http/middleware"
	"rategate/internal/handler/http/requestid"
	"rategate/internal/handler/http/respond"
	"rategate/internal/observability/logging"
	"rategate/internal/observability/tracing"
)

const defaultMaxBodyBytes = 1 << 20

// RouterConfig holds everything NewRouter mounts.
type RouterConfig struct {
	// Routes are the rate limited routes. Each gets its own policy.
	Routes []config.RouteConfig

	// Limiter builds the per-route rate limit middleware. Required.
	Limiter *middleware.RateLimiter

	// Authenticator attaches JWT users to requests. Optional.
	Authenticator *auth.Authenticator

	Health  http.Handler
	Ready   http.Handler
	Metrics http.Handler

	// MaxBodyBytes caps request bodies on rate limited routes.
	// Default: 1 MiB
	MaxBodyBytes int64

	// Default: slog.Default()
	Logger *slog.Logger
}

// RouteResponse is the body returned by a rate limited route once admitted.
type RouteResponse struct {
	Route     string `json:"route"`
	Message   string `json:"message"`
	Algorithm string `json:"algorithm"`
	Limit     int    `json:"limit"`
	Window    int    `json:"window_seconds"`
}

// NewRouter builds the server handler.
//
// Middleware order, outermost first: Recover, request ID, authentication,
// Logging, tracing, metrics, then the mux. Tracing and metrics sit directly
// above the mux so they can read the matched route pattern.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Limiter == nil {
		panic("http: RouterConfig.Limiter is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.Handle("GET /health", cfg.Health)
	}
	if cfg.Ready != nil {
		mux.Handle("GET /ready", cfg.Ready)
	}
	mux.Handle("GET /live", &LiveHandler{})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	for _, route := range cfg.Routes {
		h := routeHandler(route)
		h = cfg.Limiter.Limit(route.Name, route.Policy)(h)
		h = LimitRequestBody(cfg.MaxBodyBytes)(h)
		mux.Handle(route.Path, h)

		cfg.Logger.Info("route registered",
			slog.String("route", route.Name),
			slog.String("path", route.Path),
			slog.String("policy", route.Policy.String()))
	}

	var handler http.Handler = MetricsMiddleware(mux)
	handler = tracing.Middleware(handler)
	handler = Logging(cfg.Logger)(handler)
	if cfg.Authenticator != nil {
		handler = cfg.Authenticator.Middleware(handler)
	}
	handler = requestid.Middleware(handler)
	handler = Recover(cfg.Logger)(handler)

	return handler
}

// routeHandler answers an admitted request on route.
func routeHandler(route config.RouteConfig) http.Handler {
	body := RouteResponse{
		Route:     route.Name,
		Message:   "request admitted",
		Algorithm: route.Policy.Algorithm.String(),
		Limit:     route.Policy.Limit,
		Window:    route.Policy.WindowSeconds,
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).DebugContext(r.Context(), "route served",
			slog.String("route", route.Name))
		respond.JSON(w, http.StatusOK, body)
	})
}
