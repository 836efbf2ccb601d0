// Package metrics provides Prometheus metrics for the VoltLeague
// ranking engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the ranking engine.
type Manager struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer

	// Accumulator metrics - the engine's only write path
	accumulatorUpdates       prometheus.Counter
	accumulatorRejections    prometheus.Counter
	accumulatorUpdateLatency prometheus.Histogram

	// Ranking metrics - the read hot path
	rankingQueries      *prometheus.CounterVec
	rankingQueryLatency prometheus.Histogram

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	scopeInvalidations *prometheus.CounterVec
	invalidatedKeys    prometheus.Counter

	// Store metrics
	participantsTotal prometheus.Gauge

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the metrics namespace.
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithPrometheusRegistry sets a custom registry.
func WithPrometheusRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "voltleague",
		subsystem: "engine",
		registry:  prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.accumulatorUpdates = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accumulator_updates_total",
		Help:      "Successful metric mutations applied to the store",
	})
	m.accumulatorRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accumulator_rejections_total",
		Help:      "Mutations rejected because a total would go negative",
	})
	m.accumulatorUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "accumulator_update_latency_ms",
		Help:      "Latency of store mutations in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100},
	})

	m.rankingQueries = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_queries_total",
		Help:      "Ranking queries by query type",
	}, []string{"query"})
	m.rankingQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_query_latency_ms",
		Help:      "Latency of ranking computations in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})

	m.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Ranking cache hits",
	})
	m.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Ranking cache misses, including fail-open backend errors",
	})
	m.scopeInvalidations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scope_invalidations_total",
		Help:      "Explicit scope invalidation events by scope kind",
	}, []string{"scope_kind"})
	m.invalidatedKeys = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "invalidated_keys_total",
		Help:      "Cache keys deleted by explicit invalidation",
	})

	m.participantsTotal = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "participants_total",
		Help:      "Participants tracked by the store",
	})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and kind",
	}, []string{"component", "kind"})

	return m
}

// Handler returns an http.Handler exposing the custom registry, for
// embedding hosts that serve /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers on the global manager.

// RecordAccumulatorUpdate counts a successful mutation.
func RecordAccumulatorUpdate() { globalManager.accumulatorUpdates.Inc() }

// RecordAccumulatorRejection counts a rejected mutation.
func RecordAccumulatorRejection() { globalManager.accumulatorRejections.Inc() }

// RecordAccumulatorUpdateLatency observes a store mutation latency.
func RecordAccumulatorUpdateLatency(ms float64) { globalManager.accumulatorUpdateLatency.Observe(ms) }

// RecordRankingQuery counts a ranking query by type.
func RecordRankingQuery(query string) { globalManager.rankingQueries.WithLabelValues(query).Inc() }

// RecordRankingQueryLatency observes a ranking computation latency.
func RecordRankingQueryLatency(ms float64) { globalManager.rankingQueryLatency.Observe(ms) }

// RecordCacheHit counts a ranking cache hit.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss counts a ranking cache miss.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordScopeInvalidation counts an explicit invalidation event.
func RecordScopeInvalidation(scopeKind string) {
	globalManager.scopeInvalidations.WithLabelValues(scopeKind).Inc()
}

// RecordInvalidatedKeys counts cache keys deleted by invalidation.
func RecordInvalidatedKeys(n int) { globalManager.invalidatedKeys.Add(float64(n)) }

// UpdateParticipantsTotal sets the tracked-participant gauge.
func UpdateParticipantsTotal(n int) { globalManager.participantsTotal.Set(float64(n)) }

// RecordErrorByComponent counts an error by component and kind.
func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}
