package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func TestNewRedisCache(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)

	tests := []struct {
		name      string
		cfg       config.CacheConfig
		expectErr bool
	}{
		{
			name: "valid config",
			cfg: config.CacheConfig{
				Type:  config.CacheTypeRedis,
				TTL:   config.Duration(5 * time.Minute),
				Redis: config.RedisConfig{URL: "redis://" + mr.Addr()},
			},
		},
		{
			name: "with pool size and prefix",
			cfg: config.CacheConfig{
				Type:  config.CacheTypeRedis,
				Redis: config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 4, KeyPrefix: "svc:"},
			},
		},
		{
			name:      "invalid url",
			cfg:       config.CacheConfig{Type: config.CacheTypeRedis, Redis: config.RedisConfig{URL: "http://nope"}},
			expectErr: true,
		},
		{
			name:      "unreachable server",
			cfg:       config.CacheConfig{Type: config.CacheTypeRedis, Redis: config.RedisConfig{URL: "redis://127.0.0.1:1"}},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(tt.cfg, observability.NopLogger())
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, c.Close())
		})
	}
}

func TestRedisCache_Operations(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := newRedisFromClient(client, "test:", time.Minute, nil, nil)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("value"), 0))
	assert.True(t, mr.Exists("test:k"), "key is stored with prefix")
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := newRedisFromClient(client, "", 0, nil, nil)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 10*time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), -1))

	mr.FastForward(11 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
	assert.True(t, mr.Exists(defaultKeyPrefix+"forever"))
}

func TestRedisCache_ServerDown(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	c := NewRedis(client, "", 0, observability.NopLogger())
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	mr.Close()

	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Error(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.Error(t, c.Delete(ctx, "k"))
	_, err = c.Exists(ctx, "k")
	assert.Error(t, err)
}
