// Package metrics holds the Prometheus collectors for ingestion runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	rowsInserted    *prometheus.CounterVec
	batchesInserted *prometheus.CounterVec
	loadErrors      *prometheus.CounterVec
	ingestRuns      *prometheus.CounterVec
	ingestDuration  prometheus.Histogram
	lastSuccess     prometheus.Gauge
	gatherer        prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		rowsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bods_rows_inserted_total",
			Help: "Total number of rows inserted, by table",
		}, []string{"table"}),

		batchesInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bods_batches_inserted_total",
			Help: "Total number of batch inserts, by table",
		}, []string{"table"}),

		loadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bods_load_errors_total",
			Help: "Total number of failed table loads, by table",
		}, []string{"table"}),

		ingestRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bods_ingest_runs_total",
			Help: "Total number of ingestion runs, by result",
		}, []string{"result"}),

		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bods_ingest_duration_seconds",
			Help:    "Time taken by an ingestion run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bods_last_ingest_success_timestamp_seconds",
			Help: "Unix time of the last successful ingestion run",
		}),

		gatherer: reg,
	}
}

// BatchInserted records one successful batch insert
func (m *Metrics) BatchInserted(table string, rows int) {
	if m == nil {
		return
	}
	m.rowsInserted.WithLabelValues(table).Add(float64(rows))
	m.batchesInserted.WithLabelValues(table).Inc()
}

// LoadFailed records a failed table load
func (m *Metrics) LoadFailed(table string) {
	if m == nil {
		return
	}
	m.loadErrors.WithLabelValues(table).Inc()
}

// RunFinished records the outcome of an ingestion run
func (m *Metrics) RunFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ingestDuration.Observe(d.Seconds())
	if err != nil {
		m.ingestRuns.WithLabelValues("failure").Inc()
		return
	}
	m.ingestRuns.WithLabelValues("success").Inc()
	m.lastSuccess.SetToCurrentTime()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
