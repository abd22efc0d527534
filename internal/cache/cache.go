package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache closed")
)

// Cache is a process-wide key-value store. Each key is read and written
// atomically; concurrent writers of the same key race and the last one wins.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 uses the backend default; a negative TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend.
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Option configures a cache created by New.
type Option func(*options)

type options struct {
	metrics *Metrics
}

// WithMetrics records cache operations on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a cache for the configured backend.
func New(cfg config.CacheConfig, logger observability.Logger, opts ...Option) (Cache, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics("")
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return newMemoryCache(cfg, logger, o.metrics), nil
	case config.CacheTypeRedis:
		c, err := newRedisCache(cfg, logger, o.metrics)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, errors.New("unknown cache type: " + cfg.Type)
	}
}
