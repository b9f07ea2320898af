package ratelimit

import (
	"fmt"
	"sort"
)

// Selector maps algorithm tags to long-lived limiter instances.
//
// The map is built once and never mutated, so a Selector is safe for
// concurrent use. Scripted limiters keep their registered handle for the
// life of the Selector.
type Selector struct {
	limiters map[Algorithm]Limiter
}

// NewSelector builds exactly one limiter per known algorithm on store.
func NewSelector(store Store, opts Options) *Selector {
	return NewSelectorFrom(map[Algorithm]Limiter{
		AlgorithmFixedWindow:   NewFixedWindowLimiter(store, opts),
		AlgorithmSlidingWindow: NewSlidingWindowLimiter(store, opts),
		AlgorithmTokenBucket:   NewTokenBucketLimiter(store, opts),
		AlgorithmLeakyBucket:   NewLeakyBucketLimiter(store, opts),
	})
}

// NewSelectorFrom builds a Selector from an explicit map. The map is copied.
func NewSelectorFrom(limiters map[Algorithm]Limiter) *Selector {
	copied := make(map[Algorithm]Limiter, len(limiters))
	for tag, limiter := range limiters {
		copied[tag] = limiter
	}
	return &Selector{limiters: copied}
}

// Select returns the limiter for tag, or ErrUnsupportedAlgorithm.
func (s *Selector) Select(tag Algorithm) (Limiter, error) {
	limiter, ok := s.limiters[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, tag)
	}
	return limiter, nil
}

// CheckPolicy validates policy and confirms its algorithm is served by this
// Selector. It is meant for route setup, before any traffic.
func (s *Selector) CheckPolicy(policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	_, err := s.Select(policy.Algorithm)
	return err
}

// Algorithms returns the served tags in sorted order.
func (s *Selector) Algorithms() []Algorithm {
	tags := make([]Algorithm, 0, len(s.limiters))
	for tag := range s.limiters {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}
