package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside returns the cached value for key, calling fetch on a miss and storing
// the result with the given TTL. A failing cache read counts as a miss, so a
// Redis outage degrades reads to the source of truth instead of failing them;
// the write-back is best-effort for the same reason. Only fetch errors reach
// the caller.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var val T
	if found, err := GetJSON(ctx, key, &val); err == nil && found {
		return val, nil
	}

	val, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	_ = SetJSON(ctx, key, val, ttl)
	return val, nil
}
