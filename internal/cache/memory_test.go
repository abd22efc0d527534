package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

func newTestMemoryCache(t *testing.T, maxEntries int, ttl time.Duration) *memoryCache {
	t.Helper()

	c := newMemoryCache(config.CacheConfig{
		MaxEntries: maxEntries,
		TTL:        config.Duration(ttl),
	}, observability.NopLogger(), NewMetrics("test"))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_GetSet(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v1"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, c.Set(ctx, "k", []byte("v2"), 0))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
	assert.InDelta(t, 66.66, stats.HitRate(), 0.1)
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Expiry(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), -1))

	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ok, err = c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_DefaultTTL(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 2, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	_, err := c.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss, "least recently used entry is evicted")
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.metrics.evictionsTotal.WithLabelValues(backendMemory)))
}

func TestMemoryCache_Delete(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "never-set"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Cleanup(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("v"), time.Millisecond))
	require.NoError(t, c.Set(ctx, "b", []byte("v"), time.Hour))
	time.Sleep(5 * time.Millisecond)

	c.cleanup()
	assert.Equal(t, int64(1), c.Stats().Size)
}

func TestMemoryCache_Close(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 10, 0)
	ctx := context.Background()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrClosed)
}

func TestMemoryCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := newTestMemoryCache(t, 50, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Set(ctx, key, []byte(key), 0)
			_, _ = c.Get(ctx, key)
			_, _ = c.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Size, int64(5))
}

func TestNewMemory(t *testing.T) {
	t.Parallel()

	c := NewMemory(0, time.Minute, nil)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	ok, err := c.Exists(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New(config.CacheConfig{}, nil)
	require.NoError(t, err)
	_, isMemory := c.(*memoryCache)
	assert.True(t, isMemory)
	require.NoError(t, c.Close())

	_, err = New(config.CacheConfig{Type: "memcached"}, nil)
	assert.Error(t, err)

	_, err = New(config.CacheConfig{Type: config.CacheTypeRedis}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMetrics_MustRegister(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	reg := prometheus.NewRegistry()

	m.MustRegister(reg)
	assert.NotPanics(t, func() { m.MustRegister(reg) })
	assert.NotNil(t, m.Registry())
}

func TestSourceKey(t *testing.T) {
	t.Parallel()

	a := SourceKey("jwks", "https://a.example.com/.well-known/jwks.json")
	b := SourceKey("jwks", "https://b.example.com/.well-known/jwks.json")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, SourceKey("jwks", "https://a.example.com/.well-known/jwks.json"))
	assert.Len(t, HashKey("x"), 64)
	assert.Contains(t, a, "jwks:")
}
