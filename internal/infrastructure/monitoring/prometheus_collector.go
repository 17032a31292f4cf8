package monitoring

import (
	"strconv"
	"time"

	"geolatency/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Refresh loop
	refreshCycles        *prometheus.CounterVec
	refreshCycleDuration prometheus.Histogram
	subscriptionsActive  prometheus.Gauge

	// Snapshots
	snapshotEdges     prometheus.Gauge
	snapshotTimestamp prometheus.Gauge
	droppedSamples    prometheus.Counter
	edgeLatency       prometheus.Histogram
	nodeAvgLatency    *prometheus.GaugeVec

	// API
	historyQueries *prometheus.CounterVec
	feedPushes     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// NewPrometheusCollector registers the service metrics with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		refreshCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geolatency_refresh_cycles_total",
			Help: "Refresh cycles by result",
		}, []string{"result"}),

		refreshCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "geolatency_refresh_cycle_duration_seconds",
			Help:    "Duration of fetch-aggregate-publish cycles",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		subscriptionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geolatency_subscriptions_active",
			Help: "Number of running refresh subscriptions",
		}),

		snapshotEdges: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geolatency_snapshot_edges",
			Help: "Number of edges in the last published snapshot",
		}),

		snapshotTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "geolatency_snapshot_timestamp_seconds",
			Help: "Generation time of the last published snapshot",
		}),

		droppedSamples: factory.NewCounter(prometheus.CounterOpts{
			Name: "geolatency_dropped_samples_total",
			Help: "Samples dropped because an endpoint is not in the registry",
		}),

		edgeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "geolatency_edge_latency_ms",
			Help:    "Latency of published edges in milliseconds",
			Buckets: []float64{10, 25, 60, 100, 150, 200, 300, 400},
		}),

		nodeAvgLatency: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "geolatency_node_avg_latency_ms",
			Help: "Average latency per node in the last published snapshot",
		}, []string{"node", "provider"}),

		historyQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geolatency_history_queries_total",
			Help: "History queries by resolved range",
		}, []string{"range"}),

		feedPushes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geolatency_feed_pushes_total",
			Help: "Probe pushes by outcome",
		}, []string{"outcome"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "geolatency_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geolatency_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (p *PrometheusCollector) RecordCycle(result string, duration time.Duration) {
	p.refreshCycles.WithLabelValues(result).Inc()
	p.refreshCycleDuration.Observe(duration.Seconds())
}

// RecordSnapshot is called by every subscription; the gauges therefore reflect the most
// recent snapshot of any of them.
func (p *PrometheusCollector) RecordSnapshot(snapshot *domain.Snapshot) {
	p.snapshotEdges.Set(float64(len(snapshot.Edges)))
	p.snapshotTimestamp.Set(float64(snapshot.GeneratedAt.Unix()))
	p.droppedSamples.Add(float64(snapshot.Dropped))

	for _, e := range snapshot.Edges {
		p.edgeLatency.Observe(float64(e.LatencyMs))
	}
	for _, n := range snapshot.NodeAggregates {
		p.nodeAvgLatency.WithLabelValues(string(n.Name), string(n.Provider)).Set(n.AvgLatency)
	}
}

func (p *PrometheusCollector) RecordSubscriptionStarted() {
	p.subscriptionsActive.Inc()
}

func (p *PrometheusCollector) RecordSubscriptionEnded() {
	p.subscriptionsActive.Dec()
}

func (p *PrometheusCollector) RecordHistoryQuery(rng domain.HistoryRange) {
	p.historyQueries.WithLabelValues(string(rng)).Inc()
}

func (p *PrometheusCollector) RecordFeedPush(accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	p.feedPushes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}
