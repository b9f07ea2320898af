package ratelimit

import (
	"context"
	"sync"
)

// LocalFallbackLimiter is an in-process fixed window limiter used when the
// shared store is unreachable.
//
// It ignores the policy's algorithm and always applies a fixed window that
// starts at the first request for a key. Its counts are per process, so N
// replicas admit up to N times the policy limit while degraded.
//
// Memory is bounded by MaxKeys: when a new key arrives at capacity, the least
// recently used keys are evicted. Sweep removes expired entries and is meant
// to run periodically.
type LocalFallbackLimiter struct {
	mu      sync.Mutex
	entries map[string]*fallbackEntry
	maxKeys int
	clock   Clock
	metrics RateLimitMetrics

	// LRU tracking
	lruList *lruList
}

// fallbackEntry is the window state of a single key.
type fallbackEntry struct {
	count   int
	resetAt int64
}

// FallbackConfig holds configuration for LocalFallbackLimiter.
type FallbackConfig struct {
	// MaxKeys is the maximum number of keys to hold in memory.
	// When this limit is reached, the least recently used keys are evicted.
	// Default: 10000
	MaxKeys int

	// Clock provides time operations for testing.
	// Default: SystemClock
	Clock Clock

	// Metrics receives key counts and evictions.
	// Default: NoOpMetrics
	Metrics RateLimitMetrics
}

// NewLocalFallbackLimiter creates a fallback limiter with the given configuration.
func NewLocalFallbackLimiter(config FallbackConfig) *LocalFallbackLimiter {
	if config.MaxKeys <= 0 {
		config.MaxKeys = 10000
	}
	if config.Clock == nil {
		config.Clock = &SystemClock{}
	}
	if config.Metrics == nil {
		config.Metrics = NewNoOpMetrics()
	}

	return &LocalFallbackLimiter{
		entries: make(map[string]*fallbackEntry),
		maxKeys: config.MaxKeys,
		clock:   config.Clock,
		metrics: config.Metrics,
		lruList: newLRUList(),
	}
}

// Consume takes one unit for key from the local window.
//
// It never returns a store error; the only error is an invalid policy.
func (f *LocalFallbackLimiter) Consume(_ context.Context, key string, policy Policy) (Result, error) {
	if err := validateQuota(policy); err != nil {
		return Result{}, err
	}
	return f.Take(key, policy), nil
}

// Take applies the local fixed window to key. policy must have a positive
// Limit and WindowSeconds.
//
// A window is expired once now reaches its resetAt.
func (f *LocalFallbackLimiter) Take(key string, policy Policy) Result {
	now := f.clock.Now().Unix()

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, exists := f.entries[key]
	if !exists || now >= entry.resetAt {
		if !exists && len(f.entries) >= f.maxKeys {
			f.evictLRU()
		}

		entry = &fallbackEntry{
			count:   1,
			resetAt: now + int64(policy.WindowSeconds),
		}
		f.entries[key] = entry
		f.lruList.touch(key)
		f.metrics.SetFallbackKeys(len(f.entries))

		return Result{
			Allowed:   true,
			Remaining: policy.Limit - 1,
			ResetAt:   entry.resetAt,
		}
	}

	f.lruList.touch(key)

	if entry.count >= policy.Limit {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   entry.resetAt,
		}
	}

	entry.count++
	return Result{
		Allowed:   true,
		Remaining: policy.Limit - entry.count,
		ResetAt:   entry.resetAt,
	}
}

// Sweep removes entries whose window has expired and returns how many were removed.
func (f *LocalFallbackLimiter) Sweep() int {
	now := f.clock.Now().Unix()

	f.mu.Lock()
	defer f.mu.Unlock()

	removed := 0
	for key, entry := range f.entries {
		if now >= entry.resetAt {
			delete(f.entries, key)
			f.lruList.remove(key)
			removed++
		}
	}

	f.metrics.SetFallbackKeys(len(f.entries))
	return removed
}

// KeyCount returns the number of keys currently held.
func (f *LocalFallbackLimiter) KeyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.entries)
}

// evictLRU evicts the least recently used keys when the key limit is reached.
//
// This method evicts 10% of the keys to avoid frequent evictions.
//
// This method must be called while holding the lock.
func (f *LocalFallbackLimiter) evictLRU() {
	evictCount := f.maxKeys / 10
	if evictCount < 1 {
		evictCount = 1
	}

	evicted := 0
	for evicted < evictCount && f.lruList.tail != nil {
		key := f.lruList.tail.key
		delete(f.entries, key)
		f.lruList.remove(key)
		evicted++
	}

	f.metrics.RecordFallbackEviction(evicted)
}

// lruList maintains a doubly-linked list of keys ordered by last access time.
type lruList struct {
	head *lruNode
	tail *lruNode
	keys map[string]*lruNode
}

// lruNode represents a node in the LRU list.
type lruNode struct {
	key  string
	prev *lruNode
	next *lruNode
}

func newLRUList() *lruList {
	return &lruList{
		keys: make(map[string]*lruNode),
	}
}

// touch moves key to the front (most recently used position), adding it if absent.
func (l *lruList) touch(key string) {
	if node, exists := l.keys[key]; exists {
		if node == l.head {
			return
		}
		l.unlink(node)
		l.pushFront(node)
		return
	}

	node := &lruNode{key: key}
	l.pushFront(node)
	l.keys[key] = node
}

// remove removes a key from the list.
func (l *lruList) remove(key string) {
	node, exists := l.keys[key]
	if !exists {
		return
	}
	l.unlink(node)
	delete(l.keys, key)
}

func (l *lruList) pushFront(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
}

func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}
