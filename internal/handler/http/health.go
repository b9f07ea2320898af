package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"rategate/internal/handler/http/respond"

	"github.com/sony/gobreaker"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "degraded"
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Pinger checks connectivity to the shared store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStatus reports a circuit breaker's state.
type BreakerStatus interface {
	Name() string
	State() gobreaker.State
}

// KeyCounter reports how many keys the local fallback limiter holds.
type KeyCounter interface {
	KeyCount() int
}

// HealthHandler reports the state of the rate limiting dependencies.
//
// A store outage makes the service degraded, not unhealthy: requests are
// still answered according to each route's failure strategy, so /health
// keeps returning 200 and only the body changes.
type HealthHandler struct {
	Store    Pinger
	Breaker  BreakerStatus // optional
	Fallback KeyCounter    // optional
	Version  string

	// Timeout bounds the store ping. Default: 2s
	Timeout time.Duration
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := map[string]CheckStatus{
		"store": h.checkStore(ctx),
	}
	status := statusHealthy
	if checks["store"].Status != statusHealthy {
		status = statusDegraded
	}

	if h.Breaker != nil {
		state := h.Breaker.State()
		check := CheckStatus{
			Status:  statusHealthy,
			Details: map[string]any{"name": h.Breaker.Name(), "state": state.String()},
		}
		if state != gobreaker.StateClosed {
			check.Status = statusDegraded
			status = statusDegraded
		}
		checks["circuit_breaker"] = check
	}

	if h.Fallback != nil {
		checks["local_fallback"] = CheckStatus{
			Status:  statusHealthy,
			Details: map[string]any{"active_keys": h.Fallback.KeyCount()},
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkStore(ctx context.Context) CheckStatus {
	if h.Store == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}

	start := time.Now()
	if err := h.Store.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health: store ping failed", slog.Any("error", err))
		return CheckStatus{
			Status:  statusUnhealthy,
			Message: respond.SanitizeError(err),
		}
	}
	return CheckStatus{
		Status:  statusHealthy,
		Details: map[string]any{"latency_ms": time.Since(start).Milliseconds()},
	}
}

// ReadyHandler answers readiness probes. It is ready only while the shared
// store responds, so load balancers prefer replicas with exact quotas.
type ReadyHandler struct {
	Store Pinger
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.Store == nil {
		http.Error(w, "store not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.Store.Ping(ctx); err != nil {
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler answers liveness probes.
type LiveHandler struct{}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
