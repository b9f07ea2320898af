package ratelimit

import (
	"context"
	"fmt"
)

// FixedWindowLimiter counts requests per aligned window of WindowSeconds.
//
// Algorithm:
//  1. windowStart = floor(now / W) * W
//  2. Atomically increment <prefix>:fw:<key>:<windowStart>, TTL W on creation
//  3. Allow if count <= limit
//
// Requests over the limit are still counted; the counter simply expires with
// its window.
type FixedWindowLimiter struct {
	store  Store
	clock  Clock
	prefix string
}

// NewFixedWindowLimiter creates a fixed window limiter on store.
func NewFixedWindowLimiter(store Store, opts Options) *FixedWindowLimiter {
	opts = opts.withDefaults()
	return &FixedWindowLimiter{
		store:  store,
		clock:  opts.Clock,
		prefix: opts.Prefix,
	}
}

// Consume takes one unit for key in the current window.
func (l *FixedWindowLimiter) Consume(ctx context.Context, key string, policy Policy) (Result, error) {
	if err := validateQuota(policy); err != nil {
		return Result{}, err
	}

	now := l.clock.Now().Unix()
	window := int64(policy.WindowSeconds)
	windowStart := floorTo(now, window)

	storeKey := fmt.Sprintf("%s:fw:%s:%d", l.prefix, key, windowStart)
	count, err := l.store.Increment(ctx, storeKey, policy.Window())
	if err != nil {
		return Result{}, fmt.Errorf("fixed window: %w", err)
	}

	limit := int64(policy.Limit)
	return Result{
		Allowed:   count <= limit,
		Remaining: clampRemaining(limit-count, policy.Limit),
		ResetAt:   windowStart + window,
	}, nil
}

// validateQuota checks the numeric part of a policy. Algorithm tags are the
// Selector's concern.
func validateQuota(policy Policy) error {
	if policy.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidPolicy, policy.Limit)
	}
	if policy.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds must be positive, got %d", ErrInvalidPolicy, policy.WindowSeconds)
	}
	return nil
}

// floorTo aligns t down to a multiple of step.
func floorTo(t, step int64) int64 {
	start := t - t%step
	if t < 0 && t%step != 0 {
		start -= step
	}
	return start
}
