package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/jwtguard/internal/config"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const backendMemory = "memory"

// memoryCache implements an in-memory LRU cache.
type memoryCache struct {
	logger     observability.Logger
	metrics    *Metrics
	maxEntries int
	defaultTTL time.Duration

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
	closed   bool

	hits   int64
	misses int64

	stopCh    chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemory creates an in-memory LRU cache holding at most maxEntries items.
func NewMemory(maxEntries int, defaultTTL time.Duration, logger observability.Logger) Cache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return newMemoryCache(config.CacheConfig{
		MaxEntries: maxEntries,
		TTL:        config.Duration(defaultTTL),
	}, logger, NewMetrics(""))
}

func newMemoryCache(cfg config.CacheConfig, logger observability.Logger, metrics *Metrics) *memoryCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultCacheMaxEntries
	}

	c := &memoryCache{
		logger:     logger,
		metrics:    metrics,
		maxEntries: maxEntries,
		defaultTTL: cfg.TTL.Duration(),
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop()

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c
}

func (c *memoryCache) startSpan(ctx context.Context, op, key string) trace.Span {
	_, span := observability.StartSpan(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", backendMemory),
			attribute.String("cache.key", key),
		),
	)
	return span
}

// Get retrieves a value from the cache.
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	span := c.startSpan(ctx, "Get", key)
	defer span.End()
	defer c.metrics.observe(backendMemory, "get", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	elem, ok := c.items[key]
	if !ok || elem.Value.(*memoryEntry).expired(time.Now()) {
		if ok {
			c.removeElement(elem)
		}
		atomic.AddInt64(&c.misses, 1)
		c.metrics.recordMiss(backendMemory)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	c.eviction.MoveToFront(elem)
	atomic.AddInt64(&c.hits, 1)
	c.metrics.recordHit(backendMemory)
	span.SetAttributes(attribute.Bool("cache.hit", true))

	value := elem.Value.(*memoryEntry).value
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a value in the cache.
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	span := c.startSpan(ctx, "Set", key)
	defer span.End()
	defer c.metrics.observe(backendMemory, "set", time.Now())

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	entry := &memoryEntry{key: key, value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if elem, ok := c.items[key]; ok {
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)
	for c.eviction.Len() > c.maxEntries {
		c.evictOldest()
	}

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl))

	return nil
}

// Delete removes a value from the cache.
func (c *memoryCache) Delete(ctx context.Context, key string) error {
	span := c.startSpan(ctx, "Delete", key)
	defer span.End()
	defer c.metrics.observe(backendMemory, "delete", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	span := c.startSpan(ctx, "Exists", key)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if elem.Value.(*memoryEntry).expired(time.Now()) {
		c.removeElement(elem)
		return false, nil
	}
	return true, nil
}

// Close stops the cleanup goroutine and drops every entry.
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.closed = true
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()

		c.logger.Info("memory cache closed")
	})
	return nil
}

// Stats returns cache statistics.
func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	size := int64(c.eviction.Len())
	c.mu.Unlock()

	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Size:   size,
	}
}

// evictOldest must be called with the lock held.
func (c *memoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.metrics.recordEviction(backendMemory)
	}
}

// removeElement must be called with the lock held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}

func (c *memoryCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		c.logger.Debug("cache cleanup completed", observability.Int("removed", removed))
	}
}
