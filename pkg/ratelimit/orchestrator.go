package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "rategate/pkg/ratelimit"

// OrchestratorConfig wires the Orchestrator's collaborators.
type OrchestratorConfig struct {
	// Selector resolves algorithm tags. Required.
	Selector *Selector

	// Fallback answers local-fallback decisions.
	// Default: a LocalFallbackLimiter with default settings
	Fallback *LocalFallbackLimiter

	// Breaker guards algorithm calls. Optional.
	Breaker Breaker

	// Metrics receives decision counters and timings.
	// Default: NoOpMetrics
	Metrics RateLimitMetrics

	// Logger receives failure logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// Tracer creates one span per decision.
	// Default: the global OpenTelemetry tracer provider
	Tracer trace.Tracer

	// Clock measures decision latency.
	// Default: SystemClock
	Clock Clock

	// FailureLogInterval throttles store failure logs.
	// Default: 10s
	FailureLogInterval time.Duration
}

// Orchestrator is the single entry point for rate limit decisions.
//
// It selects the algorithm named by the policy, consumes through it and, when
// the shared store fails, applies the policy's failure strategy exactly once.
// Configuration errors never consult the strategy.
type Orchestrator struct {
	selector *Selector
	fallback *LocalFallbackLimiter
	breaker  Breaker
	metrics  RateLimitMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    Clock

	failureLog *rate.Sometimes
}

// NewOrchestrator creates an Orchestrator from cfg.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Selector == nil {
		panic("ratelimit: OrchestratorConfig.Selector is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewNoOpMetrics()
	}
	if cfg.Fallback == nil {
		cfg.Fallback = NewLocalFallbackLimiter(FallbackConfig{Clock: cfg.Clock, Metrics: cfg.Metrics})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.FailureLogInterval <= 0 {
		cfg.FailureLogInterval = 10 * time.Second
	}

	return &Orchestrator{
		selector:   cfg.Selector,
		fallback:   cfg.Fallback,
		breaker:    cfg.Breaker,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		tracer:     cfg.Tracer,
		clock:      cfg.Clock,
		failureLog: &rate.Sometimes{First: 1, Interval: cfg.FailureLogInterval},
	}
}

// Decide returns the decision for one unit of quota for key under policy.
//
// It never returns an error: store failures are folded into the decision via
// the failure strategy, and configuration errors yield OutcomeUnavailable
// with Err set.
func (o *Orchestrator) Decide(ctx context.Context, key string, policy Policy) Decision {
	start := o.clock.Now()
	algorithm := policy.Algorithm.String()

	ctx, span := o.tracer.Start(ctx, "ratelimit.Decide", trace.WithAttributes(
		attribute.String("ratelimit.algorithm", algorithm),
		attribute.String("ratelimit.strategy", policy.Strategy().String()),
		attribute.Int("ratelimit.limit", policy.Limit),
		attribute.Int("ratelimit.window_seconds", policy.WindowSeconds),
	))
	defer span.End()

	decision := o.decide(ctx, key, policy)

	span.SetAttributes(
		attribute.String("ratelimit.outcome", decision.Outcome.String()),
		attribute.Bool("ratelimit.degraded", decision.Degraded),
	)
	if decision.HasResult {
		span.SetAttributes(attribute.Int("ratelimit.remaining", decision.Result.Remaining))
	}
	if decision.Err != nil {
		span.RecordError(decision.Err)
		if decision.Outcome == OutcomeUnavailable {
			span.SetStatus(codes.Error, decision.Err.Error())
		}
	}

	o.metrics.RecordDecision(algorithm, decision.Outcome.String())
	o.metrics.RecordCheckDuration(algorithm, o.clock.Now().Sub(start))

	return decision
}

// Consume implements Limiter on top of Decide.
//
// Fail-open decisions return an allowed Result with no quota information.
// Unavailable decisions return the underlying error.
func (o *Orchestrator) Consume(ctx context.Context, key string, policy Policy) (Result, error) {
	decision := o.Decide(ctx, key, policy)
	switch {
	case decision.Outcome == OutcomeUnavailable:
		return Result{}, decision.Err
	case decision.HasResult:
		return decision.Result, nil
	default:
		return Result{Allowed: true}, nil
	}
}

func (o *Orchestrator) decide(ctx context.Context, key string, policy Policy) Decision {
	if err := policy.Validate(); err != nil {
		return o.configError(key, policy, err)
	}

	limiter, err := o.selector.Select(policy.Algorithm)
	if err != nil {
		return o.configError(key, policy, err)
	}

	result, err := o.consume(ctx, limiter, key, policy)
	if err == nil {
		return resultDecision(key, policy, result)
	}

	if !IsStoreFailure(err) {
		return o.configError(key, policy, err)
	}

	return o.handleFailure(ctx, policy.Strategy(), key, policy, err)
}

// consume calls limiter through the breaker, if one is configured.
func (o *Orchestrator) consume(ctx context.Context, limiter Limiter, key string, policy Policy) (Result, error) {
	if o.breaker == nil {
		return limiter.Consume(ctx, key, policy)
	}

	value, err := o.breaker.Execute(func() (interface{}, error) {
		return limiter.Consume(ctx, key, policy)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return Result{}, err
	}

	result, ok := value.(Result)
	if !ok {
		return Result{}, fmt.Errorf("%w: unexpected breaker value %T", ErrStoreUnavailable, value)
	}
	return result, nil
}

// handleFailure applies strategy to a store failure. It is the only place
// failure strategies are interpreted.
func (o *Orchestrator) handleFailure(ctx context.Context, strategy FailureStrategy, key string, policy Policy, err error) Decision {
	algorithm := policy.Algorithm.String()
	o.metrics.RecordStoreFailure(algorithm, strategy.String())

	o.failureLog.Do(func() {
		o.logger.WarnContext(ctx, "rate limit store failure",
			slog.String("algorithm", algorithm),
			slog.String("strategy", strategy.String()),
			slog.Any("error", err))
	})

	switch strategy {
	case FailClosed:
		return Decision{
			Key:      key,
			Policy:   policy,
			Outcome:  OutcomeUnavailable,
			Degraded: true,
			Err:      err,
		}

	case LocalFallback:
		decision := resultDecision(key, policy, o.fallback.Take(key, policy))
		decision.Degraded = true
		decision.Err = err
		return decision

	default:
		return Decision{
			Key:      key,
			Policy:   policy,
			Outcome:  OutcomeAllowed,
			Degraded: true,
			Err:      err,
		}
	}
}

func (o *Orchestrator) configError(key string, policy Policy, err error) Decision {
	o.logger.Error("rate limit policy misconfigured",
		slog.String("policy", policy.String()),
		slog.Any("error", err))

	return Decision{
		Key:     key,
		Policy:  policy,
		Outcome: OutcomeUnavailable,
		Err:     err,
	}
}
