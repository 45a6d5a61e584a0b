// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoreboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Submission Gate
	submissions *prometheus.CounterVec

	// Record Store
	teams           prometheus.Gauge
	records         prometheus.Gauge
	storeUpdateTime prometheus.Histogram
	storeQueryTime  prometheus.Histogram

	// Persistence
	flushes           *prometheus.CounterVec
	flushDuration     prometheus.Histogram
	lastFlushUnix     prometheus.Gauge
	lastFlushedRecord prometheus.Gauge
	loads             *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Lifecycle
	shutdownState prometheus.Gauge
}

// global pairs the process-wide manager with the private registry it records on.
type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

// Global metrics manager instance.
var current atomic.Pointer[global] //nolint:gochecknoglobals // intentional global for singleton metrics manager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	current.Store(newGlobal())
}

func newGlobal(opts ...Option) *global {
	// Custom registry to avoid default Go metrics.
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	return &global{manager: NewManager(opts...), registry: registry}
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before /metrics is registered.
func Init(opts ...Option) {
	current.Store(newGlobal(opts...))
}

func globalManager() *Manager { return current.Load().manager }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "Score submissions by outcome (created, unauthorized, conflict, bad_request, internal)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.teams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "teams",
		Help:        "Number of teams on the leaderboard",
		ConstLabels: m.constLabels,
	})

	m.records = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "history_records",
		Help:        "Number of records held in the history",
		ConstLabels: m.constLabels,
	})

	m.storeUpdateTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_update_latency_milliseconds",
		Help:        "Time spent admitting a record, lock wait included",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.storeQueryTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_query_latency_milliseconds",
		Help:        "Time spent answering read queries against the store",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.flushes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "flush_total",
		Help:        "Snapshot flushes by result (ok, error, skipped)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.flushDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "flush_duration_milliseconds",
		Help:        "Duration of snapshot flushes that wrote to disk",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.lastFlushUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_flush_unix_seconds",
		Help:        "Unix time of the last successful flush",
		ConstLabels: m.constLabels,
	})

	m.lastFlushedRecord = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_flush_version",
		Help:        "Store version written by the last successful flush",
		ConstLabels: m.constLabels,
	})

	m.loads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_loads_total",
		Help:        "Snapshot loads at startup by result (ok, missing, corrupt, error)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.shutdownState = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "lifecycle_state",
		Help:        "0 running, 1 shutting down, 2 stopped",
		ConstLabels: m.constLabels,
	})
}

// RecordSubmission counts one submission with its outcome.
func (m *Manager) RecordSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// UpdateStoreSize sets the team and record gauges.
func (m *Manager) UpdateStoreSize(teams, records int) {
	m.teams.Set(float64(teams))
	m.records.Set(float64(records))
}

// RecordStoreUpdateLatency records the time spent in an admitting write.
func (m *Manager) RecordStoreUpdateLatency(ms float64) {
	m.storeUpdateTime.Observe(ms)
}

// RecordStoreQueryLatency records the time spent in a read.
func (m *Manager) RecordStoreQueryLatency(ms float64) {
	m.storeQueryTime.Observe(ms)
}

// RecordFlush counts a flush and, when it wrote, its duration.
func (m *Manager) RecordFlush(result string, ms float64) {
	m.flushes.WithLabelValues(result).Inc()
	if result == FlushOK || result == FlushError {
		m.flushDuration.Observe(ms)
	}
}

// UpdateLastFlush records the time and store version of the last successful flush.
func (m *Manager) UpdateLastFlush(unix float64, version uint64) {
	m.lastFlushUnix.Set(unix)
	m.lastFlushedRecord.Set(float64(version))
}

// RecordLoad counts a startup snapshot load.
func (m *Manager) RecordLoad(result string) {
	m.loads.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, ms float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// UpdateLifecycleState sets the lifecycle gauge.
func (m *Manager) UpdateLifecycleState(state int) {
	m.shutdownState.Set(float64(state))
}

// Flush results.
const (
	FlushOK      = "ok"
	FlushError   = "error"
	FlushSkipped = "skipped"
)

// Load results.
const (
	LoadOK      = "ok"
	LoadMissing = "missing"
	LoadCorrupt = "corrupt"
	LoadError   = "error"
)

// Package-level helpers recording on the global manager.

// RecordSubmission counts one submission with its outcome.
func RecordSubmission(outcome string) { globalManager().RecordSubmission(outcome) }

// UpdateStoreSize sets the team and record gauges.
func UpdateStoreSize(teams, records int) { globalManager().UpdateStoreSize(teams, records) }

// RecordStoreUpdateLatency records the time spent in an admitting write.
func RecordStoreUpdateLatency(ms float64) { globalManager().RecordStoreUpdateLatency(ms) }

// RecordStoreQueryLatency records the time spent in a read.
func RecordStoreQueryLatency(ms float64) { globalManager().RecordStoreQueryLatency(ms) }

// RecordFlush counts a flush and, when it wrote, its duration.
func RecordFlush(result string, ms float64) { globalManager().RecordFlush(result, ms) }

// UpdateLastFlush records the time and store version of the last successful flush.
func UpdateLastFlush(unix float64, version uint64) { globalManager().UpdateLastFlush(unix, version) }

// RecordLoad counts a startup snapshot load.
func RecordLoad(result string) { globalManager().RecordLoad(result) }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, ms float64) {
	globalManager().RecordHTTPRequest(endpoint, method, statusCode, ms)
}

// UpdateLifecycleState sets the lifecycle gauge.
func UpdateLifecycleState(state int) { globalManager().UpdateLifecycleState(state) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
