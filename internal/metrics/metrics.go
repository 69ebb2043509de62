// Package metrics exposes Prometheus instrumentation for player queries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ftclutch"

// Query outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
	OutcomeMemo   = "memo"
)

// Manager owns the collectors and their registry.
type Manager struct {
	registry *prometheus.Registry

	shotsParsed    prometheus.Counter
	shotsDropped   *prometheus.CounterVec
	estimatorCalls prometheus.Counter
	cacheHits      prometheus.Counter
	queries        *prometheus.CounterVec
	queryDuration  prometheus.Histogram
}

// NewManager registers all collectors on a fresh private registry.
func NewManager() *Manager {
	reg := prometheus.NewRegistry()
	m := &Manager{
		registry: reg,
		shotsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_parsed_total",
			Help:      "Free-throw events that parsed and were evaluated.",
		}),
		shotsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_dropped_total",
			Help:      "Free-throw events dropped because a field failed to parse.",
		}, []string{"reason"}),
		estimatorCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimator_calls_total",
			Help:      "Monte Carlo simulations run.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimator_cache_hits_total",
			Help:      "Win probability lookups served from the cache.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Player queries by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end player query latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(
		m.shotsParsed,
		m.shotsDropped,
		m.estimatorCalls,
		m.cacheHits,
		m.queries,
		m.queryDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) IncShotParsed() {
	m.shotsParsed.Inc()
}

func (m *Manager) IncShotDropped(reason string) {
	m.shotsDropped.WithLabelValues(reason).Inc()
}

func (m *Manager) AddEstimatorCalls(n uint64) {
	m.estimatorCalls.Add(float64(n))
}

func (m *Manager) AddCacheHits(n uint64) {
	m.cacheHits.Add(float64(n))
}

// ObserveQuery records the outcome and latency of one player query.
func (m *Manager) ObserveQuery(outcome string, d time.Duration) {
	m.queries.WithLabelValues(outcome).Inc()
	m.queryDuration.Observe(d.Seconds())
}
