package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token decoding and key resolution.
type Metrics struct {
	decodeTotal        *prometheus.CounterVec
	decodeDuration     *prometheus.HistogramVec
	keyResolutionFails *prometheus.CounterVec
	jwksFetchTotal     *prometheus.CounterVec
	jwksFetchDuration  prometheus.Histogram
	jwksCacheHits      prometheus.Counter
	jwksCacheMisses    prometheus.Counter
	registry           *prometheus.Registry
}

var (
	sharedMetrics     *Metrics
	sharedMetricsOnce sync.Once
)

// GetSharedMetrics returns the singleton Metrics instance.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetrics = NewMetrics("")
	})
	return sharedMetrics
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jwtguard"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.decodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "decode_total",
			Help:      "Total number of token decode attempts",
		},
		[]string{"strategy", "status"},
	)

	m.decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "decode_duration_seconds",
			Help:      "Token decode duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"strategy"},
	)

	m.keyResolutionFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "key_resolution_failures_total",
			Help:      "Total number of failed signing key lookups",
		},
		[]string{"reason"},
	)

	m.jwksFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_fetch_total",
			Help:      "Total number of JWKS downloads",
		},
		[]string{"status"},
	)

	m.jwksFetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_fetch_duration_seconds",
			Help:      "JWKS download duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.jwksCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_cache_hits_total",
			Help:      "Total number of key set lookups served from cache",
		},
	)

	m.jwksCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_cache_misses_total",
			Help:      "Total number of key set lookups that missed the cache",
		},
	)

	m.registry.MustRegister(m.collectors()...)

	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.decodeTotal,
		m.decodeDuration,
		m.keyResolutionFails,
		m.jwksFetchTotal,
		m.jwksFetchDuration,
		m.jwksCacheHits,
		m.jwksCacheMisses,
	}
}

// RecordDecode records a decode attempt by one parser strategy.
func (m *Metrics) RecordDecode(strategy Strategy, status string, duration time.Duration) {
	m.decodeTotal.WithLabelValues(string(strategy), status).Inc()
	m.decodeDuration.WithLabelValues(string(strategy)).Observe(duration.Seconds())
}

// RecordKeyResolutionFailure records a failed key lookup.
func (m *Metrics) RecordKeyResolutionFailure(reason KeyResolutionReason) {
	m.keyResolutionFails.WithLabelValues(string(reason)).Inc()
}

// RecordJWKSFetch records a key set download.
func (m *Metrics) RecordJWKSFetch(status string, duration time.Duration) {
	m.jwksFetchTotal.WithLabelValues(status).Inc()
	m.jwksFetchDuration.Observe(duration.Seconds())
}

// RecordJWKSCacheHit records a key set served from cache.
func (m *Metrics) RecordJWKSCacheHit() {
	m.jwksCacheHits.Inc()
}

// RecordJWKSCacheMiss records a key set cache miss.
func (m *Metrics) RecordJWKSCacheMiss() {
	m.jwksCacheMisses.Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// AlreadyRegisteredError is ignored so parsers can be rebuilt.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			if !isAlreadyRegistered(err) {
				panic(err)
			}
		}
	}
}

func isAlreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}
