// Package metrics defines the Prometheus metric collectors used by the
// injection service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	InjectionsTotal      *prometheus.CounterVec
	SelectionLatency     *prometheus.HistogramVec
	SelectionSize        prometheus.Histogram
	SkillsSelectedTotal  *prometheus.CounterVec
	NegationDropsTotal   *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CorpusDocuments      prometheus.Gauge
	CorpusReloadsTotal   *prometheus.CounterVec
	CircuitBreakerState  *prometheus.GaugeVec
	AnalyticsDropsTotal  *prometheus.CounterVec
}

// New creates all collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		InjectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skill_injections_total",
				Help: "Total selection requests by mode and outcome (selected, empty, error).",
			},
			[]string{"mode", "outcome"},
		),
		SelectionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skill_selection_latency_seconds",
				Help:    "Skill selection latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"cache_status"},
		),
		SelectionSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skill_selection_size",
				Help:    "Number of skills selected per message.",
				Buckets: []float64{0, 1, 2, 3, 5, 10},
			},
		),
		SkillsSelectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skills_selected_total",
				Help: "Times each skill was selected for injection.",
			},
			[]string{"skill"},
		),
		NegationDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skill_negation_drops_total",
				Help: "Candidates discarded because the message negated them.",
			},
			[]string{"skill"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "selection_cache_hits_total",
				Help: "Total number of selection cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "selection_cache_misses_total",
				Help: "Total number of selection cache misses.",
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "skill_corpus_documents",
				Help: "Number of skills in the active corpus.",
			},
		),
		CorpusReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skill_corpus_reloads_total",
				Help: "Corpus reloads by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		AnalyticsDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Analytics events discarded before publishing, by reason.",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.InjectionsTotal,
		m.SelectionLatency,
		m.SelectionSize,
		m.SkillsSelectedTotal,
		m.NegationDropsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CorpusDocuments,
		m.CorpusReloadsTotal,
		m.CircuitBreakerState,
		m.AnalyticsDropsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
