package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/catalog-service/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestHit_BlocksAfterMaxAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := throttle.Hit(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, err := throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys keep their own budget.
	ok, err = throttle.Hit(ctx, "b@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHit_WindowExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 1, time.Minute)
	ctx := context.Background()

	_, err := throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	ok, err := throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"a@x.com"))
	mr.FastForward(time.Minute + time.Second)

	ok, err = throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReset(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 1, time.Minute)
	ctx := context.Background()

	_, _ = throttle.Hit(ctx, "a@x.com")
	require.NoError(t, throttle.Reset(ctx, "a@x.com"))
	assert.False(t, mr.Exists(keyPrefix+"a@x.com"))

	ok, err := throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHit_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 1, time.Minute)
	mr.Close()

	_, err := throttle.Hit(context.Background(), "a@x.com")
	require.Error(t, err)
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()

	client, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Addr: addr})
	require.Error(t, err)
}

func TestHit_RestoresMissingTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 3, time.Minute)
	k := keyPrefix + "a@x.com"

	// A counter over the limit whose EXPIRE never landed.
	require.NoError(t, mr.Set(k, "7"))
	require.Zero(t, mr.TTL(k))

	ok, err := throttle.Hit(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(k))

	mr.FastForward(time.Minute + time.Second)
	ok, err = throttle.Hit(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHit_KeepsWindowStart(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client, 5, time.Minute)
	ctx := context.Background()

	_, err := throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)
	mr.FastForward(20 * time.Second)
	_, err = throttle.Hit(ctx, "a@x.com")
	require.NoError(t, err)

	assert.Equal(t, 40*time.Second, mr.TTL(keyPrefix+"a@x.com"))
}
