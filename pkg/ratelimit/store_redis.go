package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the Store implementation backed by Redis.
//
// Increment runs a small Lua routine so the increment and the one-time TTL
// are applied in a single server-side step. Every failure is wrapped with
// ErrStoreUnavailable except unknown script handles, which surface as
// ErrScriptNotFound so the caller can re-register.
type RedisStore struct {
	client redis.UniversalClient
	incr   *redis.Script
}

// NewRedisStore creates a RedisStore using client.
//
// The client owns the connection pool; closing it is the caller's job.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		incr:   redis.NewScript(incrExpireSource),
	}
}

// Increment adds one to the counter at key, attaching ttl when it is created.
func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := s.incr.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, storeError("incr", key, err)
	}
	return count, nil
}

// Get reads the counter at key. A missing key reads as 0.
func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	value, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, storeError("get", key, err)
	}
	return value, nil
}

// LoadScript registers src with SCRIPT LOAD and returns its SHA1.
func (s *RedisStore) LoadScript(ctx context.Context, src string) (string, error) {
	sha, err := s.client.ScriptLoad(ctx, src).Result()
	if err != nil {
		return "", storeError("script load", "", err)
	}
	return sha, nil
}

// EvalScript runs the script registered under handle with EVALSHA.
func (s *RedisStore) EvalScript(ctx context.Context, handle string, keys []string, args ...interface{}) (ScriptReply, error) {
	raw, err := s.client.EvalSha(ctx, handle, keys, args...).Slice()
	if err != nil {
		if redis.HasErrorPrefix(err, "NOSCRIPT") {
			return ScriptReply{}, fmt.Errorf("%w: %s", ErrScriptNotFound, handle)
		}
		return ScriptReply{}, storeError("evalsha", handle, err)
	}
	return parseScriptReply(raw)
}

// Ping checks connectivity to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeError("ping", "", err)
	}
	return nil
}

// parseScriptReply decodes a {flag, value} reply. The value may arrive as an
// integer or as a numeric string.
func parseScriptReply(raw []interface{}) (ScriptReply, error) {
	if len(raw) != 2 {
		return ScriptReply{}, fmt.Errorf("%w: expected 2 reply elements, got %d", ErrScriptRegistration, len(raw))
	}

	flag, ok := raw[0].(int64)
	if !ok {
		return ScriptReply{}, fmt.Errorf("%w: unexpected flag type %T", ErrScriptRegistration, raw[0])
	}

	var value float64
	switch v := raw[1].(type) {
	case int64:
		value = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ScriptReply{}, fmt.Errorf("%w: unexpected value %q: %w", ErrScriptRegistration, v, err)
		}
		value = parsed
	default:
		return ScriptReply{}, fmt.Errorf("%w: unexpected value type %T", ErrScriptRegistration, raw[1])
	}

	return ScriptReply{Flag: flag, Value: value}, nil
}
