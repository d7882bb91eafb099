package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/indexer-snapshots/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis starts an in-process Redis and wraps a client for it
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	return mr, cache
}

func TestNewRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	host, port, _ := splitHostPort(mr.Addr())
	cache, err := NewRedisCache(&config.RedisConfig{Host: host, Port: port, MaxConnections: 5})
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, cache.Close())
	}()

	assert.NoError(t, cache.Ping(testContext(t)))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping dial timeout test in short mode")
	}

	_, err := NewRedisCache(&config.RedisConfig{Host: "127.0.0.1", Port: "1", MaxConnections: 1})
	assert.Error(t, err)
}

func TestRedisCache_SetGetDel(t *testing.T) {
	mr, cache := newTestRedis(t)
	defer mr.Close()
	ctx := testContext(t)

	require.NoError(t, cache.Set(ctx, "test:key", "test-value", 10*time.Second))

	got, err := cache.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.Equal(t, "test-value", got)

	exists, err := cache.Exists(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(11 * time.Second)
	_, err = cache.Get(ctx, "test:key")
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, cache.Set(ctx, "test:other", "v", 0))
	require.NoError(t, cache.Del(ctx, "test:other"))
	exists, err = cache.Exists(ctx, "test:other")
	require.NoError(t, err)
	assert.False(t, exists)
}
