// Package metrics exposes prometheus instrumentation for the message router
// and the confidential key service, and a standalone server to scrape it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the daemon exports. A nil *Metrics is valid
// and records nothing, so components can be constructed without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	DispatchCount   *prometheus.CounterVec
	DispatchLatency *prometheus.HistogramVec
	SeedDerivations *prometheus.CounterVec
	ContextCache    *prometheus.CounterVec
	Interactions    *prometheus.CounterVec
}

// New registers all collectors under namespace in a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DispatchCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "router_dispatch_total",
				Help:      "Number of dispatched router messages",
			},
			[]string{"route", "kind", "result"},
		),
		DispatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "router_dispatch_latency_seconds",
				Help:      "Latency of router handlers",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "kind"},
		),
		SeedDerivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "secretwasm_seed_lookups_total",
				Help:      "Seed lookups by outcome (persisted, derived, failed)",
			},
			[]string{"outcome"},
		),
		ContextCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "secretwasm_context_cache_total",
				Help:      "Encryption context cache hits, misses and purges",
			},
			[]string{"event"},
		),
		Interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interaction_requests_total",
				Help:      "User interaction requests by type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}

	m.registry.MustRegister(
		m.DispatchCount,
		m.DispatchLatency,
		m.SeedDerivations,
		m.ContextCache,
		m.Interactions,
	)
	return m
}

func (m *Metrics) ObserveDispatch(route, kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DispatchCount.WithLabelValues(route, kind, result).Inc()
	m.DispatchLatency.WithLabelValues(route, kind).Observe(elapsed.Seconds())
}

func (m *Metrics) SeedLookup(outcome string) {
	if m == nil {
		return
	}
	m.SeedDerivations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContextCacheEvent(event string) {
	if m == nil {
		return
	}
	m.ContextCache.WithLabelValues(event).Inc()
}

func (m *Metrics) Interaction(typ, outcome string) {
	if m == nil {
		return
	}
	m.Interactions.WithLabelValues(typ, outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MetricsServer is a dedicated HTTP server for scraping.
type MetricsServer struct {
	*http.Server
}

// NewServer serves m on addr under /metrics.
func NewServer(addr string, m *Metrics) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &MetricsServer{
		Server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}
