// Package metrics exposes Prometheus counters for the pipeline stages and
// the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yrfi"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	rowsWritten   *prometheus.CounterVec
	rowsDropped   *prometheus.CounterVec
	scrapeErrors  *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a Metrics bound to a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rowsWritten: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to stage output tables.",
		}, []string{"stage"}),
		rowsDropped: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped by a stage, by reason.",
		}, []string{"stage", "reason"}),
		scrapeErrors: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_errors_total",
			Help:      "Per-item scrape failures that were logged and skipped.",
		}, []string{"source"}),
		stageDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage", "status"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "http_requests_total",
			Help:      "Dashboard requests by route and status code.",
		}, []string{"route", "method", "status_code"}),
		httpDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "http_request_duration_seconds",
			Help:      "Dashboard request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

var global = New()

// Default returns the process-wide Metrics.
func Default() *Metrics { return global }

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RowsWritten counts rows written by stage.
func (m *Metrics) RowsWritten(stage string, n int) {
	if n > 0 {
		m.rowsWritten.WithLabelValues(stage).Add(float64(n))
	}
}

// RowsDropped counts rows dropped by stage for reason.
func (m *Metrics) RowsDropped(stage, reason string, n int) {
	if n > 0 {
		m.rowsDropped.WithLabelValues(stage, reason).Add(float64(n))
	}
}

// ScrapeError counts one skipped item from source.
func (m *Metrics) ScrapeError(source string) {
	m.scrapeErrors.WithLabelValues(source).Inc()
}

// StageDone records a stage's wall time.
func (m *Metrics) StageDone(stage string, ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// Request records one dashboard request.
func (m *Metrics) Request(route, method string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
