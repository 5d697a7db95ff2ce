package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the linkscope collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	QueriesTotal   *prometheus.CounterVec
	QueryDuration  *prometheus.HistogramVec
	QueryResults   *prometheus.HistogramVec
	QueryTruncated *prometheus.CounterVec
	DepthClamped   *prometheus.CounterVec

	SnapshotNodes  prometheus.Gauge
	SnapshotEdges  prometheus.Gauge
	SnapshotLoaded prometheus.Gauge
	ReloadsTotal   *prometheus.CounterVec
	ReloadDuration prometheus.Histogram
}

// NewMetrics registers every collector on a fresh registry under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "linkscope"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		QueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total graph queries by kind and status",
		}, []string{"kind", "status"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Graph query duration",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
		}, []string{"kind"}),
		QueryResults: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Paths or cycles returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 25, 50},
		}, []string{"kind"}),
		QueryTruncated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_truncated_total",
			Help:      "Queries that stopped at their expansion budget or result cap",
		}, []string{"kind"}),
		DepthClamped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_depth_clamped_total",
			Help:      "Queries whose requested depth exceeded the configured ceiling",
		}, []string{"kind"}),

		SnapshotNodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_nodes",
			Help:      "Entities in the active snapshot",
		}),
		SnapshotEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_edges",
			Help:      "Relationships in the active snapshot",
		}),
		SnapshotLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_loaded_timestamp_seconds",
			Help:      "Unix time the active snapshot was installed",
		}),
		ReloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_reloads_total",
			Help:      "Snapshot reloads by status",
		}, []string{"status"}),
		ReloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_reload_duration_seconds",
			Help:      "Time to load and install a snapshot",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordQuery records one finished query.
func (m *Metrics) RecordQuery(kind string, duration time.Duration, results int, truncated bool, err error) {
	m.QueriesTotal.WithLabelValues(kind, status(err)).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.QueryResults.WithLabelValues(kind).Observe(float64(results))
	if truncated {
		m.QueryTruncated.WithLabelValues(kind).Inc()
	}
}

// RecordClamp counts a depth that was lowered to the ceiling.
func (m *Metrics) RecordClamp(kind string) {
	m.DepthClamped.WithLabelValues(kind).Inc()
}

// RecordSnapshot publishes the size of a newly installed snapshot.
func (m *Metrics) RecordSnapshot(nodes, edges int, at time.Time) {
	m.SnapshotNodes.Set(float64(nodes))
	m.SnapshotEdges.Set(float64(edges))
	m.SnapshotLoaded.Set(float64(at.Unix()))
}

// RecordReload records a reload attempt.
func (m *Metrics) RecordReload(duration time.Duration, err error) {
	m.ReloadsTotal.WithLabelValues(status(err)).Inc()
	m.ReloadDuration.Observe(duration.Seconds())
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics("linkscope")
	})
	return defaultMetrics
}
