// Package resilience groups the fault tolerance helpers used around the
// shared rate limit store.
//
// The package supports:
//   - A circuit breaker that stops store calls while Redis is failing
//   - Retry with exponential backoff and jitter for the startup ping
//
// Usage Example:
//
//	cb := circuitbreaker.NewStoreBreaker(engineCfg, metrics)
//	orchestrator := ratelimit.NewOrchestrator(ratelimit.OrchestratorConfig{
//	    Selector: selector,
//	    Breaker:  cb,
//	})
//
//	err := retry.WithBackoff(ctx, retry.StoreConnectConfig(), func() error {
//	    return store.Ping(ctx)
//	})
package resilience
