package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const (
	backendRedis     = "redis"
	defaultKeyPrefix = "jwtguard:"
)

// redisCache implements Cache on top of a Redis server.
type redisCache struct {
	logger     observability.Logger
	metrics    *Metrics
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration

	hits   int64
	misses int64
}

func newRedisCache(cfg config.CacheConfig, logger observability.Logger, metrics *Metrics) (*redisCache, error) {
	if cfg.Redis.URL == "" {
		return nil, fmt.Errorf("%w: redis URL is required", ErrInvalidConfig)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
	}
	if cfg.Redis.PoolSize > 0 {
		opts.PoolSize = cfg.Redis.PoolSize
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisFromClient(client, cfg.Redis.KeyPrefix, cfg.TTL.Duration(), logger, metrics), nil
}

// NewRedis wraps an existing client. An empty prefix defaults to "jwtguard:".
func NewRedis(client *redis.Client, keyPrefix string, defaultTTL time.Duration, logger observability.Logger) Cache {
	return newRedisFromClient(client, keyPrefix, defaultTTL, logger, nil)
}

func newRedisFromClient(
	client *redis.Client, keyPrefix string, defaultTTL time.Duration,
	logger observability.Logger, metrics *Metrics,
) *redisCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = NewMetrics("")
	}

	logger.Info("redis cache initialized",
		observability.String("keyPrefix", keyPrefix),
		observability.Duration("defaultTTL", defaultTTL))

	return &redisCache{
		logger:     logger,
		metrics:    metrics,
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: defaultTTL,
	}
}

func (c *redisCache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return observability.StartSpan(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", backendRedis),
			attribute.String("cache.key", key),
		),
	)
}

func (c *redisCache) fail(span trace.Span, op, key string, err error) error {
	c.metrics.recordError(backendRedis, op)
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	c.logger.Error("redis "+op+" failed",
		observability.String("key", key),
		observability.Error(err))
	return err
}

// Get retrieves a value from the cache.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "Get", key)
	defer span.End()
	defer c.metrics.observe(backendRedis, "get", time.Now())

	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	switch {
	case err == nil:
		atomic.AddInt64(&c.hits, 1)
		c.metrics.recordHit(backendRedis)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	case errors.Is(err, redis.Nil):
		atomic.AddInt64(&c.misses, 1)
		c.metrics.recordMiss(backendRedis)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	default:
		return nil, c.fail(span, "get", key, err)
	}
}

// Set stores a value in the cache.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := c.startSpan(ctx, "Set", key)
	defer span.End()
	defer c.metrics.observe(backendRedis, "set", time.Now())

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if ttl < 0 {
		ttl = 0
	}

	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return c.fail(span, "set", key, err)
	}
	return nil
}

// Delete removes a value from the cache.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	ctx, span := c.startSpan(ctx, "Delete", key)
	defer span.End()
	defer c.metrics.observe(backendRedis, "delete", time.Now())

	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return c.fail(span, "delete", key, err)
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := c.startSpan(ctx, "Exists", key)
	defer span.End()

	n, err := c.client.Exists(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return false, c.fail(span, "exists", key, err)
	}
	return n > 0, nil
}

// Close closes the Redis client.
func (c *redisCache) Close() error {
	return c.client.Close()
}

// Stats returns cache statistics. Size is not tracked for Redis.
func (c *redisCache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}
