package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// IngestEventsTotal counts ingested broadcast events by type.
	IngestEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_ingest_events_total",
		Help: "Total number of ingested broadcast events by type",
	}, []string{"event_type"})

	// IngestDropsTotal counts events dropped because the ingest buffer was full.
	IngestDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_ingest_drops_total",
		Help: "Total number of events dropped by the ingest hub",
	}, []string{"event_type"})

	// StreamMergesTotal counts completed duplicate-capture merges.
	StreamMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamlens_stream_merges_total",
		Help: "Total number of completed stream merges",
	})

	// ParseResultsTotal counts product-number parse outcomes.
	ParseResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_parse_results_total",
		Help: "Total number of comment parse outcomes",
	}, []string{"result"})

	// ReportAssembliesTotal counts assembled reports by outcome.
	ReportAssembliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_report_assemblies_total",
		Help: "Total number of report assemblies",
	}, []string{"outcome"})

	// OrderAPICallsTotal counts order service requests by status.
	OrderAPICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_order_api_calls_total",
		Help: "Total number of order service API calls",
	}, []string{"status"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamlens_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of active report stream clients.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamlens_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamlens_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordIngestEvent increments the ingest counter for the event type.
func RecordIngestEvent(eventType string) {
	IngestEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordIngestDrop increments the drop counter for the event type.
func RecordIngestDrop(eventType string) {
	IngestDropsTotal.WithLabelValues(eventType).Inc()
}

// RecordParseResult increments the parse outcome counter ("hit" or "miss").
func RecordParseResult(hit bool) {
	if hit {
		ParseResultsTotal.WithLabelValues("hit").Inc()
		return
	}
	ParseResultsTotal.WithLabelValues("miss").Inc()
}
