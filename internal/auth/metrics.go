package auth

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the endpoint guard.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	systemTokens    *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance on a private registry. Use
// MustRegister to expose it.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jwtguard"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "requests_total",
			Help:      "Total number of guarded requests by outcome",
		},
		[]string{"result"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "request_duration_seconds",
			Help:      "Time spent authenticating and authorizing a request",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"result"},
	)

	m.systemTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guard",
			Name:      "system_token_requests_total",
			Help:      "Total number of system token requests",
		},
		[]string{"status"},
	)

	m.registry.MustRegister(m.collectors()...)

	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.systemTokens,
	}
}

// RecordRequest records the outcome of one guarded request.
func (m *Metrics) RecordRequest(result string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(result).Inc()
	m.requestDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordSystemToken records a system token request.
func (m *Metrics) RecordSystemToken(status string) {
	m.systemTokens.WithLabelValues(status).Inc()
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegister registers the metrics with the given registry.
// AlreadyRegisteredError is ignored.
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
