package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	routecfg "rategate/internal/config"
	hhttp "rategate/internal/handler/http"
	"rategate/internal/handler/http/auth"
	"rategate/internal/handler/http/middleware"
	"rategate/internal/observability/logging"
	"rategate/internal/observability/metrics"
	"rategate/internal/observability/tracing"
	"rategate/internal/resilience/circuitbreaker"
	"rategate/internal/resilience/retry"
	"rategate/pkg/config"
	"rategate/pkg/ratelimit"
)

func main() {
	logger := logging.NewFromEnv()
	slog.SetDefault(logger)

	version := config.GetEnvString("VERSION", "dev")

	shutdownTracing := initTracing(logger, version)

	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}

	client := initRedis(logger)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", slog.Any("error", err))
		}
	}()

	eng := setupEngine(logger, client, rateLimitConfig)
	routes := loadRoutes(logger, eng.selector)
	handler := setupServer(logger, eng, routes, rateLimitConfig, version)

	runServer(logger, handler, eng, rateLimitConfig, version)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", slog.Any("error", err))
	}
}

// initTracing installs the tracer provider. Spans carry IDs for log and
// response correlation even without an exporter.
func initTracing(logger *slog.Logger, version string) func(context.Context) error {
	shutdown, err := tracing.InitProvider(tracing.ProviderConfig{
		ServiceName:    config.GetEnvString("SERVICE_NAME", "rategate"),
		ServiceVersion: version,
		SampleRatio:    config.GetEnvFloat("TRACE_SAMPLE_RATIO", 1.0),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	return shutdown
}

// initRedis creates the shared store client and waits for it with backoff.
// An unreachable store is not fatal: each route's failure strategy applies
// until it comes back.
func initRedis(logger *slog.Logger) *redis.Client {
	redisConfig := config.LoadRedisConfig()
	client := redis.NewClient(&redis.Options{
		Addr:        redisConfig.Addr,
		Password:    redisConfig.Password,
		DB:          redisConfig.DB,
		DialTimeout: redisConfig.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store := ratelimit.NewRedisStore(client)
	err := retry.WithBackoff(ctx, retry.StoreConnectConfig(), func() error {
		return store.Ping(ctx)
	})
	if err != nil {
		logger.Warn("redis unreachable at startup, failure strategies apply",
			slog.String("addr", redisConfig.Addr),
			slog.Any("error", err))
	} else {
		logger.Info("redis connected", slog.String("addr", redisConfig.Addr))
	}
	return client
}

// engine holds the rate limiting components shared by the server and the
// background sweep.
type engine struct {
	store        *ratelimit.RedisStore
	selector     *ratelimit.Selector
	fallback     *ratelimit.LocalFallbackLimiter
	breaker      *circuitbreaker.CircuitBreaker
	orchestrator *ratelimit.Orchestrator
	metrics      *ratelimit.PrometheusMetrics
}

func setupEngine(logger *slog.Logger, client redis.UniversalClient, cfg *ratelimit.Config) *engine {
	e := &engine{
		store:   ratelimit.NewRedisStore(client),
		metrics: ratelimit.NewPrometheusMetrics(),
	}

	e.selector = ratelimit.NewSelector(e.store, ratelimit.Options{Prefix: cfg.KeyPrefix})
	e.fallback = ratelimit.NewLocalFallbackLimiter(ratelimit.FallbackConfig{
		MaxKeys: cfg.FallbackMaxKeys,
		Metrics: e.metrics,
	})

	orchestratorConfig := ratelimit.OrchestratorConfig{
		Selector: e.selector,
		Fallback: e.fallback,
		Metrics:  e.metrics,
		Logger:   logger,
	}
	if cfg.BreakerEnabled {
		e.breaker = circuitbreaker.NewStoreBreaker(cfg, e.metrics)
		orchestratorConfig.Breaker = e.breaker
		logger.Info("store circuit breaker enabled",
			slog.Float64("failure_ratio", cfg.BreakerFailureRatio),
			slog.Any("min_requests", cfg.BreakerMinRequests),
			slog.Duration("open_timeout", cfg.BreakerOpenTimeout))
	}
	e.orchestrator = ratelimit.NewOrchestrator(orchestratorConfig)

	logger.Info("rate limit engine ready",
		slog.String("key_prefix", cfg.KeyPrefix),
		slog.Any("algorithms", e.selector.Algorithms()),
		slog.Int("fallback_max_keys", cfg.FallbackMaxKeys))
	return e
}

// loadRoutes reads RATELIMIT_POLICIES_FILE, or the built-in routes when it is
// unset, and rejects any policy the selector cannot serve.
func loadRoutes(logger *slog.Logger, selector *ratelimit.Selector) []routecfg.RouteConfig {
	routes := routecfg.DefaultRoutes()
	if path := config.GetEnvString("RATELIMIT_POLICIES_FILE", ""); path != "" {
		loaded, err := routecfg.LoadRoutesConfig(path)
		if err != nil {
			logger.Error("failed to load route policies", slog.String("path", path), slog.Any("error", err))
			os.Exit(1)
		}
		routes = loaded
		logger.Info("route policies loaded", slog.String("path", path), slog.Int("routes", len(routes.Routes)))
	} else {
		logger.Info("using built-in route policies", slog.Int("routes", len(routes.Routes)))
	}

	for _, route := range routes.Routes {
		if err := selector.CheckPolicy(route.Policy); err != nil {
			logger.Error("route policy rejected", slog.String("route", route.Name), slog.Any("error", err))
			os.Exit(1)
		}
	}
	return routes.Routes
}

func setupServer(logger *slog.Logger, e *engine, routes []routecfg.RouteConfig, cfg *ratelimit.Config, version string) http.Handler {
	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (proxy headers ignored)")
	}

	authenticator := auth.NewAuthenticator(config.GetEnvString("JWT_SECRET", ""))
	if authenticator.Enabled() {
		logger.Info("JWT identity enabled")
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Decider:      e.orchestrator,
		Resolver:     middleware.NewKeyResolver(ipExtractor, auth.UserFromContext),
		CheckTimeout: cfg.CheckTimeout,
		Logger:       logger,
	})

	health := &hhttp.HealthHandler{
		Store:    e.store,
		Fallback: e.fallback,
		Version:  version,
	}
	if e.breaker != nil {
		health.Breaker = e.breaker
	}

	return hhttp.NewRouter(hhttp.RouterConfig{
		Routes:        routes,
		Limiter:       limiter,
		Authenticator: authenticator,
		Health:        health,
		Ready:         &hhttp.ReadyHandler{Store: e.store},
		Metrics:       hhttp.MetricsHandler(e.metrics.Registry()),
		Logger:        logger,
	})
}

// startSweep schedules the local fallback sweep.
func startSweep(logger *slog.Logger, e *engine, spec string) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		removed := e.fallback.Sweep()
		metrics.RecordFallbackSweep(removed, time.Since(start))
		if removed > 0 {
			logger.Debug("fallback sweep",
				slog.Int("removed", removed),
				slog.Int("remaining", e.fallback.KeyCount()))
		}
	})
	if err != nil {
		logger.Error("failed to schedule fallback sweep", slog.String("spec", spec), slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	logger.Info("fallback sweep scheduled", slog.String("spec", spec))
	return c
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, e *engine, cfg *ratelimit.Config, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := startSweep(logger, e, cfg.FallbackSweepSpec)

	addr := config.GetEnvString("HTTP_ADDR", ":8080")
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	<-sweeper.Stop().Done()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
