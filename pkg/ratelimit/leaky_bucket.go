package ratelimit

import (
	"context"
	"fmt"
	"math"
)

// LeakyBucketLimiter admits a request only if the bucket has room, draining
// at Limit/W units per second.
//
// State lives in the hash <prefix>:lb:<key> (fields water, ts).
type LeakyBucketLimiter struct {
	store  Store
	clock  Clock
	prefix string
	script *Script
}

// NewLeakyBucketLimiter creates a leaky bucket limiter on store.
func NewLeakyBucketLimiter(store Store, opts Options) *LeakyBucketLimiter {
	opts = opts.withDefaults()
	return &LeakyBucketLimiter{
		store:  store,
		clock:  opts.Clock,
		prefix: opts.Prefix,
		script: NewScript("leaky_bucket", leakyBucketSource),
	}
}

// Consume adds one unit of water for key if it fits.
func (l *LeakyBucketLimiter) Consume(ctx context.Context, key string, policy Policy) (Result, error) {
	if err := validateQuota(policy); err != nil {
		return Result{}, err
	}

	now := l.clock.Now().Unix()

	reply, err := l.script.Run(ctx, l.store,
		[]string{fmt.Sprintf("%s:lb:%s", l.prefix, key)},
		policy.Limit, policy.Rate(), now, 2*policy.WindowSeconds, policy.WindowSeconds,
	)
	if err != nil {
		return Result{}, fmt.Errorf("leaky bucket: %w", err)
	}

	water := snapToInteger(reply.Value)
	return Result{
		Allowed:   reply.Allowed(),
		Remaining: clampRemaining(int64(policy.Limit)-int64(math.Ceil(water)), policy.Limit),
		ResetAt:   now + secondsFor(water, policy),
	}, nil
}
