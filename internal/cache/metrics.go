package cache

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for cache operations.
type Metrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	evictionsTotal    *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	registry          *prometheus.Registry
}

// NewMetrics creates cache metrics registered on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jwtguard"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"backend"},
		),
		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"backend"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"backend"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of failed cache operations",
			},
			[]string{"backend", "operation"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache operations",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1},
			},
			[]string{"backend", "operation"},
		),
	}

	m.registry.MustRegister(m.collectors()...)
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.hitsTotal,
		m.missesTotal,
		m.evictionsTotal,
		m.errorsTotal,
		m.operationDuration,
	}
}

func (m *Metrics) recordHit(backend string)      { m.hitsTotal.WithLabelValues(backend).Inc() }
func (m *Metrics) recordMiss(backend string)     { m.missesTotal.WithLabelValues(backend).Inc() }
func (m *Metrics) recordEviction(backend string) { m.evictionsTotal.WithLabelValues(backend).Inc() }

func (m *Metrics) recordError(backend, op string) {
	m.errorsTotal.WithLabelValues(backend, op).Inc()
}

func (m *Metrics) observe(backend, op string, start time.Time) {
	m.operationDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the collectors with registry. Collectors that are
// already registered are skipped.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}
