package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFixedWindowLimiter_Consume(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	clock := NewMockClock(testEpoch.Add(3 * time.Second))
	limiter := NewFixedWindowLimiter(store, Options{Clock: clock})
	policy := Policy{Limit: 3, WindowSeconds: 10, Algorithm: AlgorithmFixedWindow}

	windowEnd := testEpoch.Unix() + 10
	want := []Result{
		{Allowed: true, Remaining: 2, ResetAt: windowEnd},
		{Allowed: true, Remaining: 1, ResetAt: windowEnd},
		{Allowed: true, Remaining: 0, ResetAt: windowEnd},
		{Allowed: false, Remaining: 0, ResetAt: windowEnd},
		{Allowed: false, Remaining: 0, ResetAt: windowEnd},
	}

	for i, w := range want {
		got, err := limiter.Consume(ctx, "client-a", policy)
		if err != nil {
			t.Fatalf("Consume() #%d error = %v", i+1, err)
		}
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("Consume() #%d mismatch (-want +got):\n%s", i+1, diff)
		}
	}
}

func TestFixedWindowLimiter_ResetsInNextWindow(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	clock := NewMockClock(testEpoch)
	limiter := NewFixedWindowLimiter(store, Options{Clock: clock})
	policy := Policy{Limit: 2, WindowSeconds: 10, Algorithm: AlgorithmFixedWindow}

	for i := 0; i < 3; i++ {
		if _, err := limiter.Consume(ctx, "client-a", policy); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
	}

	clock.Advance(10 * time.Second)

	got, err := limiter.Consume(ctx, "client-a", policy)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !got.Allowed || got.Remaining != 1 {
		t.Errorf("first request of next window = %+v, want allowed with remaining 1", got)
	}
	if got.ResetAt != testEpoch.Unix()+20 {
		t.Errorf("ResetAt = %d, want %d", got.ResetAt, testEpoch.Unix()+20)
	}
}

func TestFixedWindowLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newTestRedis(t)
	limiter := NewFixedWindowLimiter(store, Options{Clock: NewMockClock(testEpoch)})
	policy := Policy{Limit: 1, WindowSeconds: 60, Algorithm: AlgorithmFixedWindow}

	for _, key := range []string{"a", "b", "c"} {
		got, err := limiter.Consume(ctx, key, policy)
		if err != nil {
			t.Fatalf("Consume(%q) error = %v", key, err)
		}
		if !got.Allowed {
			t.Errorf("Consume(%q) denied, want allowed", key)
		}
	}
}

func TestFixedWindowLimiter_CounterKeyAndTTL(t *testing.T) {
	ctx := context.Background()
	mr, store, _ := newTestRedis(t)
	limiter := NewFixedWindowLimiter(store, Options{Prefix: "rl", Clock: NewMockClock(testEpoch.Add(4 * time.Second))})
	policy := Policy{Limit: 5, WindowSeconds: 10, Algorithm: AlgorithmFixedWindow}

	for i := 0; i < 2; i++ {
		if _, err := limiter.Consume(ctx, "client-a", policy); err != nil {
			t.Fatalf("Consume() error = %v", err)
		}
	}

	key := "rl:fw:client-a:1700000000"
	value, err := mr.Get(key)
	if err != nil {
		t.Fatalf("counter %q missing: %v", key, err)
	}
	if value != "2" {
		t.Errorf("counter = %q, want %q", value, "2")
	}
	if ttl := mr.TTL(key); ttl != 10*time.Second {
		t.Errorf("TTL = %v, want %v", ttl, 10*time.Second)
	}
}

func TestFixedWindowLimiter_InvalidPolicy(t *testing.T) {
	store := &failingStore{}
	limiter := NewFixedWindowLimiter(store, Options{})

	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero limit", Policy{Limit: 0, WindowSeconds: 10}},
		{"negative window", Policy{Limit: 1, WindowSeconds: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := limiter.Consume(context.Background(), "k", tt.policy)
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Consume() error = %v, want ErrInvalidPolicy", err)
			}
		})
	}

	if calls := store.calls.Load(); calls != 0 {
		t.Errorf("store was called %d times for invalid policies", calls)
	}
}

func TestFixedWindowLimiter_StoreFailure(t *testing.T) {
	limiter := NewFixedWindowLimiter(&failingStore{}, Options{})
	policy := Policy{Limit: 1, WindowSeconds: 10}

	_, err := limiter.Consume(context.Background(), "k", policy)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Consume() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestFloorTo(t *testing.T) {
	tests := []struct {
		t, step, want int64
	}{
		{0, 10, 0},
		{9, 10, 0},
		{10, 10, 10},
		{1_700_000_007, 60, 1_699_999_980},
		{-1, 10, -10},
		{-10, 10, -10},
	}

	for _, tt := range tests {
		if got := floorTo(tt.t, tt.step); got != tt.want {
			t.Errorf("floorTo(%d, %d) = %d, want %d", tt.t, tt.step, got, tt.want)
		}
	}
}
