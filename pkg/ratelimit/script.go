package ratelimit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

var (
	//go:embed lua/token_bucket.lua
	tokenBucketSource string

	//go:embed lua/leaky_bucket.lua
	leakyBucketSource string

	//go:embed lua/incr_expire.lua
	incrExpireSource string
)

// Script is a lazily registered server-side routine.
//
// The handle returned by the store is cached for the life of the process.
// Concurrent first callers share one registration, and a handle the store has
// forgotten (for example after SCRIPT FLUSH or a failover) is dropped and
// registered again on the next call.
type Script struct {
	name string
	src  string

	mu     sync.RWMutex
	handle string

	group singleflight.Group
}

// NewScript creates a Script for src. name is used in error messages.
func NewScript(name, src string) *Script {
	return &Script{name: name, src: src}
}

// Name returns the script name.
func (s *Script) Name() string {
	return s.name
}

// Handle returns the cached handle, registering the script on first use.
func (s *Script) Handle(ctx context.Context, store Store) (string, error) {
	s.mu.RLock()
	handle := s.handle
	s.mu.RUnlock()
	if handle != "" {
		return handle, nil
	}

	ch := s.group.DoChan(s.name, func() (interface{}, error) {
		s.mu.RLock()
		cached := s.handle
		s.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		// One caller's cancellation must not fail everyone waiting on the
		// shared registration.
		loaded, err := store.LoadScript(context.WithoutCancel(ctx), s.src)
		if err != nil {
			return "", err
		}

		s.mu.Lock()
		s.handle = loaded
		s.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: register %s: %w", ErrScriptRegistration, s.name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("%w: register %s: %w", ErrScriptRegistration, s.name, res.Err)
		}
		return res.Val.(string), nil
	}
}

// Run executes the script, registering it first if needed.
//
// If the store reports the handle as unknown, the handle is invalidated and
// the call is retried exactly once with a fresh registration.
func (s *Script) Run(ctx context.Context, store Store, keys []string, args ...interface{}) (ScriptReply, error) {
	handle, err := s.Handle(ctx, store)
	if err != nil {
		return ScriptReply{}, err
	}

	reply, err := store.EvalScript(ctx, handle, keys, args...)
	if !errors.Is(err, ErrScriptNotFound) {
		return reply, err
	}

	s.invalidate(handle)

	handle, err = s.Handle(ctx, store)
	if err != nil {
		return ScriptReply{}, err
	}
	return store.EvalScript(ctx, handle, keys, args...)
}

// invalidate drops the cached handle unless another caller already replaced it.
func (s *Script) invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == stale {
		s.handle = ""
	}
}
