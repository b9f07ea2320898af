package ratelimit

import (
	"context"
	"fmt"
	"math"
)

// TokenBucketLimiter allows bursts up to Limit and refills at Limit/W tokens
// per second.
//
// State lives in the hash <prefix>:tb:<key> (fields tokens, ts) and is
// updated by a single Lua routine, so concurrent callers on one key never
// interleave.
type TokenBucketLimiter struct {
	store  Store
	clock  Clock
	prefix string
	script *Script
}

// NewTokenBucketLimiter creates a token bucket limiter on store.
func NewTokenBucketLimiter(store Store, opts Options) *TokenBucketLimiter {
	opts = opts.withDefaults()
	return &TokenBucketLimiter{
		store:  store,
		clock:  opts.Clock,
		prefix: opts.Prefix,
		script: NewScript("token_bucket", tokenBucketSource),
	}
}

// Consume spends one token for key if one is available.
func (l *TokenBucketLimiter) Consume(ctx context.Context, key string, policy Policy) (Result, error) {
	if err := validateQuota(policy); err != nil {
		return Result{}, err
	}

	now := l.clock.Now().Unix()

	reply, err := l.script.Run(ctx, l.store,
		[]string{fmt.Sprintf("%s:tb:%s", l.prefix, key)},
		policy.Limit, policy.Rate(), now, 2*policy.WindowSeconds, policy.WindowSeconds,
	)
	if err != nil {
		return Result{}, fmt.Errorf("token bucket: %w", err)
	}

	tokens := snapToInteger(reply.Value)
	return Result{
		Allowed:   reply.Allowed(),
		Remaining: clampRemaining(int64(math.Floor(tokens)), policy.Limit),
		ResetAt:   now + secondsFor(float64(policy.Limit)-tokens, policy),
	}, nil
}

// snapToInteger absorbs float noise near integer token counts.
func snapToInteger(x float64) float64 {
	if r := math.Round(x); math.Abs(x-r) < 1e-9 {
		return r
	}
	return x
}

// secondsFor returns how long, rounded up, the bucket needs to move units
// at limit per window.
func secondsFor(units float64, policy Policy) int64 {
	if units <= 0 {
		return 0
	}
	return int64(math.Ceil(snapToInteger(units * float64(policy.WindowSeconds) / float64(policy.Limit))))
}
