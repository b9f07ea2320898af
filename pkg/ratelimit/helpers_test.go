package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// testEpoch is aligned to every window length used in tests.
var testEpoch = time.Unix(1_700_000_000, 0)

// MockClock implements Clock interface for testing
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// newTestRedis starts an in-process Redis and returns a store and the raw client.
func newTestRedis(t testing.TB) (*miniredis.Miniredis, *RedisStore, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisStore(client), client
}

// failingStore fails every call with a store error.
type failingStore struct {
	calls atomic.Int64
}

func (s *failingStore) err(op string) error {
	s.calls.Add(1)
	return storeError(op, "", fmt.Errorf("connection refused"))
}

func (s *failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, s.err("incr")
}

func (s *failingStore) Get(context.Context, string) (int64, error) {
	return 0, s.err("get")
}

func (s *failingStore) LoadScript(context.Context, string) (string, error) {
	return "", s.err("script load")
}

func (s *failingStore) EvalScript(context.Context, string, []string, ...interface{}) (ScriptReply, error) {
	return ScriptReply{}, s.err("evalsha")
}

// recordingMetrics records what the engine reports.
type recordingMetrics struct {
	NoOpMetrics

	mu        sync.Mutex
	decisions map[string]int
	failures  map[string]int
	evictions int
	keys      int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		decisions: make(map[string]int),
		failures:  make(map[string]int),
	}
}

func (m *recordingMetrics) RecordDecision(algorithm, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[algorithm+"/"+outcome]++
}

func (m *recordingMetrics) RecordStoreFailure(algorithm, strategy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[algorithm+"/"+strategy]++
}

func (m *recordingMetrics) RecordFallbackEviction(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions += count
}

func (m *recordingMetrics) SetFallbackKeys(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = count
}

func (m *recordingMetrics) decision(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decisions[key]
}

func (m *recordingMetrics) failure(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[key]
}
