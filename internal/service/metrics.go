package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus instrumentation. All record
// methods are safe on a nil receiver so services can run without metrics
// in tests.
type Metrics struct {
	registry *prometheus.Registry

	reviewsSubmitted  *prometheus.CounterVec
	reviewCorrections *prometheus.CounterVec
	recomputes        *prometheus.CounterVec
	kpiRuns           *prometheus.CounterVec
	summaryDuration   prometheus.Histogram
}

// NewMetrics builds a registry with the engine collectors registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reviewsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incentives_reviews_submitted_total",
			Help: "Ledger records created, by review type.",
		}, []string{"review_type"}),
		reviewCorrections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incentives_review_corrections_total",
			Help: "Administrative corrections applied to the ledger.",
		}, []string{"operation"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incentives_next_review_recomputes_total",
			Help: "Next review date recomputations, by outcome.",
		}, []string{"outcome"}),
		kpiRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incentives_kpi_runs_total",
			Help: "Daily KPI snapshot runs, by outcome.",
		}, []string{"outcome"}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "incentives_location_summary_duration_seconds",
			Help:    "Time taken to aggregate a location summary.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reviewsSubmitted,
		m.reviewCorrections,
		m.recomputes,
		m.kpiRuns,
		m.summaryDuration,
	)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReviewSubmitted(reviewType string) {
	if m == nil {
		return
	}
	m.reviewsSubmitted.WithLabelValues(reviewType).Inc()
}

func (m *Metrics) ReviewCorrected(operation string) {
	if m == nil {
		return
	}
	m.reviewCorrections.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecomputeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.recomputes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) KpiRunOutcome(outcome string) {
	if m == nil {
		return
	}
	m.kpiRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSummaryDuration(seconds float64) {
	if m == nil {
		return
	}
	m.summaryDuration.Observe(seconds)
}
