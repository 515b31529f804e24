// Package ratelimit counts login attempts in Redis so every replica shares
// the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duynhne/catalog-service/config"
)

const keyPrefix = "login_attempts:"

// RedisLoginThrottle implements domain.LoginThrottle with a fixed window
// counter per key.
type RedisLoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewRedisLoginThrottle creates a throttle allowing maxAttempts per window.
func NewRedisLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *RedisLoginThrottle {
	return &RedisLoginThrottle{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// NewClient opens a Redis client and checks it with PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Hit records one attempt. The window starts at the first attempt. A counter
// left without a TTL, e.g. after a failed EXPIRE, gets one on the next hit.
func (t *RedisLoginThrottle) Hit(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	}); err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}

	if ttl.Val() < 0 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}

	return incr.Val() <= t.maxAttempts, nil
}

// Reset clears the counter, typically after a successful login.
func (t *RedisLoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", keyPrefix+key, err)
	}
	return nil
}
