package ratelimit

import (
	"context"
	"fmt"
	"math"
)

// SlidingWindowLimiter approximates a trailing window with two fixed windows.
//
// The previous window's count is weighted by how much of it still overlaps
// the trailing window:
//
//	effective = current + floor(previous * (W - elapsed) / W)
//
// This is an approximation: it assumes the previous window's requests were
// spread evenly.
type SlidingWindowLimiter struct {
	store  Store
	clock  Clock
	prefix string
}

// NewSlidingWindowLimiter creates a sliding window limiter on store.
func NewSlidingWindowLimiter(store Store, opts Options) *SlidingWindowLimiter {
	opts = opts.withDefaults()
	return &SlidingWindowLimiter{
		store:  store,
		clock:  opts.Clock,
		prefix: opts.Prefix,
	}
}

// Consume takes one unit for key, counting the weighted previous window.
func (l *SlidingWindowLimiter) Consume(ctx context.Context, key string, policy Policy) (Result, error) {
	if err := validateQuota(policy); err != nil {
		return Result{}, err
	}

	now := l.clock.Now().Unix()
	window := int64(policy.WindowSeconds)
	currentStart := floorTo(now, window)
	previousStart := currentStart - window

	currentKey := fmt.Sprintf("%s:sw:%s:%d", l.prefix, key, currentStart)
	previousKey := fmt.Sprintf("%s:sw:%s:%d", l.prefix, key, previousStart)

	// The current counter must outlive its window so the next window can
	// still read it as "previous".
	current, err := l.store.Increment(ctx, currentKey, 2*policy.Window())
	if err != nil {
		return Result{}, fmt.Errorf("sliding window: %w", err)
	}

	previous, err := l.store.Get(ctx, previousKey)
	if err != nil {
		return Result{}, fmt.Errorf("sliding window: %w", err)
	}

	elapsed := now - currentStart
	overlap := float64(window-elapsed) / float64(window)
	effective := current + int64(math.Floor(float64(previous)*overlap))

	limit := int64(policy.Limit)
	return Result{
		Allowed:   effective <= limit,
		Remaining: clampRemaining(limit-effective, policy.Limit),
		ResetAt:   currentStart + window,
	}, nil
}
