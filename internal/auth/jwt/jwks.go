package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/jwtguard/internal/cache"
	"github.com/vyrodovalexey/jwtguard/internal/observability"
)

const (
	// DefaultJWKSTTL is how long a downloaded key set stays cached.
	DefaultJWKSTTL = 24 * time.Hour

	// DefaultJWKSTimeout bounds a single key set download.
	DefaultJWKSTimeout = 5 * time.Second

	maxJWKSSize = 1 << 20
)

// JWKSResolver resolves keys from a remote JSON Web Key Set. The raw set is
// kept in a shared cache; a kid that is missing from a cached set triggers
// exactly one refetch.
type JWKSResolver struct {
	url      string
	cacheKey string
	ttl      time.Duration
	store    cache.Cache
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   observability.Logger
	metrics  *Metrics
}

// JWKSOption is a functional option for the JWKS resolver.
type JWKSOption func(*JWKSResolver)

// WithJWKSCacheKey overrides the cache key the raw set is stored under.
func WithJWKSCacheKey(key string) JWKSOption {
	return func(r *JWKSResolver) {
		if key != "" {
			r.cacheKey = key
		}
	}
}

// WithJWKSTTL sets how long a downloaded set stays cached.
func WithJWKSTTL(ttl time.Duration) JWKSOption {
	return func(r *JWKSResolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithHTTPClient sets the client used to download the set.
func WithHTTPClient(client *http.Client) JWKSOption {
	return func(r *JWKSResolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithCircuitBreaker guards downloads with a breaker that opens after
// maxFailures consecutive failures and half-opens after openTimeout.
func WithCircuitBreaker(maxFailures uint32, openTimeout time.Duration) JWKSOption {
	return func(r *JWKSResolver) {
		if maxFailures == 0 {
			maxFailures = 5
		}
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "jwks",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.logger.Warn("circuit breaker state change",
					observability.String("name", name),
					observability.String("from", from.String()),
					observability.String("to", to.String()),
				)
			},
		})
	}
}

// WithJWKSLogger sets the logger.
func WithJWKSLogger(logger observability.Logger) JWKSOption {
	return func(r *JWKSResolver) {
		r.logger = logger
	}
}

// WithJWKSMetrics sets the metrics.
func WithJWKSMetrics(metrics *Metrics) JWKSOption {
	return func(r *JWKSResolver) {
		r.metrics = metrics
	}
}

// NewJWKSResolver creates a resolver for the key set published at url.
func NewJWKSResolver(url string, store cache.Cache, opts ...JWKSOption) (*JWKSResolver, error) {
	if url == "" {
		return nil, errors.New("jwks url is required")
	}
	if store == nil {
		return nil, errors.New("jwks cache is required")
	}

	r := &JWKSResolver{
		url:      url,
		cacheKey: cache.SourceKey("jwks", url),
		ttl:      DefaultJWKSTTL,
		store:    store,
		client:   &http.Client{Timeout: DefaultJWKSTimeout},
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		r.metrics = GetSharedMetrics()
	}

	return r, nil
}

// URL returns the key set location.
func (r *JWKSResolver) URL() string {
	return r.url
}

// CacheKey returns the key the raw set is cached under.
func (r *JWKSResolver) CacheKey() string {
	return r.cacheKey
}

// ResolveKey returns the public key whose kid matches the header.
func (r *JWKSResolver) ResolveKey(ctx context.Context, header Header) (any, error) {
	ctx, span := observability.StartSpan(ctx, "jwks.ResolveKey",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("jwks.url", r.url)),
	)
	defer span.End()

	key, err := r.resolve(ctx, header)
	if err != nil {
		var kre *KeyResolutionError
		if errors.As(err, &kre) {
			r.metrics.RecordKeyResolutionFailure(kre.Reason)
			span.SetAttributes(attribute.String("jwks.failure", string(kre.Reason)))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return key, nil
}

func (r *JWKSResolver) resolve(ctx context.Context, header Header) (any, error) {
	kid := header.KeyID()
	if kid == "" {
		return nil, &KeyResolutionError{Reason: ReasonMissingKID}
	}

	raw, fetched, err := r.keySet(ctx)
	if err != nil {
		return nil, &KeyResolutionError{Reason: ReasonFetchFailed, KeyID: kid, Cause: err}
	}

	key, found, err := findKey(raw, kid)
	if err != nil && !errors.Is(err, errUnreadableSet) {
		return nil, &KeyResolutionError{Reason: ReasonInvalidKey, KeyID: kid, Cause: err}
	}

	if !found && !fetched {
		r.logger.Debug("kid not in cached key set, refetching",
			observability.String("kid", kid),
			observability.String("url", r.url))

		raw, err = r.refresh(ctx)
		if err != nil {
			return nil, &KeyResolutionError{Reason: ReasonFetchFailed, KeyID: kid, Cause: err}
		}
		key, found, err = findKey(raw, kid)
		if err != nil && !errors.Is(err, errUnreadableSet) {
			return nil, &KeyResolutionError{Reason: ReasonInvalidKey, KeyID: kid, Cause: err}
		}
	}

	if !found {
		return nil, &KeyResolutionError{Reason: ReasonKIDNotFound, KeyID: kid}
	}
	return key, nil
}

// keySet returns the raw set, from cache when possible. fetched reports
// whether a download happened.
func (r *JWKSResolver) keySet(ctx context.Context) (raw []byte, fetched bool, err error) {
	raw, err = r.store.Get(ctx, r.cacheKey)
	if err == nil {
		r.metrics.RecordJWKSCacheHit()
		return raw, false, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("jwks cache read failed, fetching from source",
			observability.String("key", r.cacheKey),
			observability.Error(err))
	}
	r.metrics.RecordJWKSCacheMiss()

	raw, err = r.refresh(ctx)
	return raw, true, err
}

// refresh downloads the set and stores it in the cache.
func (r *JWKSResolver) refresh(ctx context.Context) ([]byte, error) {
	raw, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.store.Set(ctx, r.cacheKey, raw, r.ttl); err != nil {
		r.logger.Warn("failed to cache jwks",
			observability.String("key", r.cacheKey),
			observability.Error(err))
	}
	return raw, nil
}

// Invalidate drops the cached set so the next lookup downloads it again.
func (r *JWKSResolver) Invalidate(ctx context.Context) error {
	return r.store.Delete(ctx, r.cacheKey)
}

func (r *JWKSResolver) fetch(ctx context.Context) ([]byte, error) {
	if r.breaker == nil {
		return r.download(ctx)
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.download(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (r *JWKSResolver) download(ctx context.Context) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "jwks.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", r.url)),
	)
	defer span.End()

	start := time.Now()
	raw, err := r.doDownload(ctx)
	if err != nil {
		r.metrics.RecordJWKSFetch("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("failed to fetch jwks",
			observability.String("url", r.url),
			observability.Error(err))
		return nil, err
	}

	r.metrics.RecordJWKSFetch("success", time.Since(start))
	r.logger.Debug("jwks fetched",
		observability.String("url", r.url),
		observability.Int("bytes", len(raw)))
	return raw, nil
}

func (r *JWKSResolver) doDownload(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var doc keySetDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse jwks: %w", err)
	}
	return raw, nil
}

type keySetDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

var errUnreadableSet = errors.New("unreadable key set")

// findKey scans the raw set for kid. Entries other than the matching one
// are not validated.
func findKey(raw []byte, kid string) (any, bool, error) {
	var doc keySetDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("%w: %w", errUnreadableSet, err)
	}

	for _, entry := range doc.Keys {
		var head struct {
			KeyID string `json:"kid"`
		}
		if err := json.Unmarshal(entry, &head); err != nil || head.KeyID != kid {
			continue
		}

		key, err := jwk.ParseKey(entry)
		if err != nil {
			return nil, true, fmt.Errorf("failed to parse jwk: %w", err)
		}

		var material any
		if err := key.Raw(&material); err != nil {
			return nil, true, fmt.Errorf("failed to extract key material: %w", err)
		}
		return material, true, nil
	}

	return nil, false, nil
}
