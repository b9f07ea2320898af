package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestSlidingWindowLimiter_CarriesOverPreviousWindow(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	clock := NewMockClock(testEpoch)
	limiter := NewSlidingWindowLimiter(store, Options{Clock: clock})
	policy := Policy{Limit: 5, WindowSeconds: 10, Algorithm: AlgorithmSlidingWindow}

	for i := 0; i < 5; i++ {
		got, err := limiter.Consume(ctx, "client-a", policy)
		if err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
		if !got.Allowed {
			t.Fatalf("request %d denied in first window", i+1)
		}
		if got.Remaining != 4-i {
			t.Errorf("request %d remaining = %d, want %d", i+1, got.Remaining, 4-i)
		}
	}

	steps := []struct {
		name          string
		at            time.Duration
		wantAllowed   bool
		wantRemaining int
	}{
		// overlap 0.8: 1 + floor(5*0.8) = 5
		{"two seconds into next window", 12 * time.Second, true, 0},
		// 2 + 4 = 6
		{"second request at same instant", 12 * time.Second, false, 0},
		// overlap 0.2: 3 + floor(5*0.2) = 4
		{"late in next window", 18 * time.Second, true, 1},
	}

	for _, step := range steps {
		clock.Set(testEpoch.Add(step.at))

		got, err := limiter.Consume(ctx, "client-a", policy)
		if err != nil {
			t.Fatalf("%s: Consume() error = %v", step.name, err)
		}
		if got.Allowed != step.wantAllowed {
			t.Errorf("%s: Allowed = %v, want %v", step.name, got.Allowed, step.wantAllowed)
		}
		if got.Remaining != step.wantRemaining {
			t.Errorf("%s: Remaining = %d, want %d", step.name, got.Remaining, step.wantRemaining)
		}
		if got.ResetAt != testEpoch.Unix()+20 {
			t.Errorf("%s: ResetAt = %d, want %d", step.name, got.ResetAt, testEpoch.Unix()+20)
		}
	}
}

func TestSlidingWindowLimiter_PreviousWindowForgottenAfterTwoWindows(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	clock := NewMockClock(testEpoch)
	limiter := NewSlidingWindowLimiter(store, Options{Clock: clock})
	policy := Policy{Limit: 2, WindowSeconds: 10, Algorithm: AlgorithmSlidingWindow}

	for i := 0; i < 4; i++ {
		if _, err := limiter.Consume(ctx, "client-a", policy); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
	}

	clock.Advance(20 * time.Second)

	got, err := limiter.Consume(ctx, "client-a", policy)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !got.Allowed || got.Remaining != 1 {
		t.Errorf("Consume() = %+v, want allowed with remaining 1", got)
	}
}

func TestSlidingWindowLimiter_CounterTTLIsTwoWindows(t *testing.T) {
	ctx := context.Background()
	mr, store, _ := newTestRedis(t)
	limiter := NewSlidingWindowLimiter(store, Options{Clock: NewMockClock(testEpoch)})
	policy := Policy{Limit: 5, WindowSeconds: 10, Algorithm: AlgorithmSlidingWindow}

	if _, err := limiter.Consume(ctx, "client-a", policy); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	key := "ratelimit:sw:client-a:1700000000"
	if ttl := mr.TTL(key); ttl != 20*time.Second {
		t.Errorf("TTL(%s) = %v, want %v", key, ttl, 20*time.Second)
	}
}

func TestSlidingWindowLimiter_RemainingNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	clock := NewMockClock(testEpoch)
	limiter := NewSlidingWindowLimiter(store, Options{Clock: clock})
	policy := Policy{Limit: 3, WindowSeconds: 5, Algorithm: AlgorithmSlidingWindow}

	for i := 0; i < 40; i++ {
		got, err := limiter.Consume(ctx, "client-a", policy)
		if err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
		if got.Remaining < 0 || got.Remaining > policy.Limit {
			t.Fatalf("Remaining = %d outside [0, %d]", got.Remaining, policy.Limit)
		}
		clock.Advance(700 * time.Millisecond)
	}
}
