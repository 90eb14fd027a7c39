package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	// Push channel metrics.
	FeedFramesReceived prometheus.Counter
	FeedFramesDropped  *prometheus.CounterVec // labels: reason={malformed,missing_id}
	FeedReconnects     prometheus.Counter
	FeedConnected      prometheus.Gauge
	FeedBufferSize     prometheus.Gauge

	// Polling metrics.
	BackendRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	BackendDuration *prometheus.HistogramVec // labels: endpoint
	StatsFallbacks  prometheus.Counter
	QueryCache      *prometheus.CounterVec // labels: query, result={hit,miss}

	// Live collection metrics.
	SnapshotsReceived *prometheus.CounterVec // labels: collection
	ListenerErrors    *prometheus.CounterVec // labels: collection
	ReportsPersisted  *prometheus.CounterVec // labels: feed

	StreamClients prometheus.Gauge
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FeedFramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_frames_received_total",
			Help:      "Total frames read from the push channel.",
		}),
		FeedFramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_frames_dropped_total",
			Help:      "Push channel frames dropped by reason.",
		}, []string{"reason"}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_reconnects_total",
			Help:      "Total reconnect attempts scheduled after a disconnect.",
		}),
		FeedConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_connected",
			Help:      "1 when the push channel is open, 0 otherwise.",
		}),
		FeedBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_buffer_size",
			Help:      "Entries currently held in the live feed buffer.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request duration in seconds, retries included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint"}),
		StatsFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_fallbacks_total",
			Help:      "Times stats were derived from reports after the stats endpoint failed.",
		}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Cached query lookups by query and result.",
		}, []string{"query", "result"}),
		SnapshotsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_received_total",
			Help:      "Live collection snapshots received by collection.",
		}, []string{"collection"}),
		ListenerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_errors_total",
			Help:      "Live collection listener failures by collection.",
		}, []string{"collection"}),
		ReportsPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_persisted_total",
			Help:      "Normalized reports written to the snapshot store by feed.",
		}, []string{"feed"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Websocket clients currently attached to the feed relay.",
		}),
	}

	prometheus.MustRegister(
		m.FeedFramesReceived,
		m.FeedFramesDropped,
		m.FeedReconnects,
		m.FeedConnected,
		m.FeedBufferSize,
		m.BackendRequests,
		m.BackendDuration,
		m.StatsFallbacks,
		m.QueryCache,
		m.SnapshotsReceived,
		m.ListenerErrors,
		m.ReportsPersisted,
		m.StreamClients,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FeedFramesReceived: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "feed_frames_received_total"}),
		FeedFramesDropped:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "feed_frames_dropped_total"}, []string{"reason"}),
		FeedReconnects:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "feed_reconnects_total"}),
		FeedConnected:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "feed_connected"}),
		FeedBufferSize:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "feed_buffer_size"}),
		BackendRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "backend_requests_total"}, []string{"endpoint", "outcome"}),
		BackendDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "backend_request_duration_seconds"}, []string{"endpoint"}),
		StatsFallbacks:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "stats_fallbacks_total"}),
		QueryCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "query_cache_total"}, []string{"query", "result"}),
		SnapshotsReceived:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "snapshots_received_total"}, []string{"collection"}),
		ListenerErrors:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "listener_errors_total"}, []string{"collection"}),
		ReportsPersisted:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "reports_persisted_total"}, []string{"feed"}),
		StreamClients:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "stream_clients"}),
	}
}
