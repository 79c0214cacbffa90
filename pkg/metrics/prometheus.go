// Package metrics provides Prometheus metrics for the fedagg aggregation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the aggregation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Aggregation metrics
	aggregations        prometheus.Counter
	aggregationErrors   *prometheus.CounterVec
	aggregationLatency  prometheus.Histogram
	clientsPerRound     prometheus.Histogram
	vectorDimension     prometheus.Gauge
	clippedUpdates      prometheus.Counter
	duplicateClientIDs  prometheus.Counter
	noisedAggregations  prometheus.Counter
	shardedAggregations prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// clientBuckets spans single-client calls up to large cross-device rounds.
var clientBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 10000} //nolint:gochecknoglobals // fixed bucket layout

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fedagg",
		subsystem:        "aggregator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.aggregations = auto.NewCounter(m.counterOpts(
		"aggregations_total", "Total number of successful aggregation calls"))
	m.aggregationErrors = auto.NewCounterVec(m.counterOpts(
		"aggregation_errors_total", "Total number of rejected aggregation calls by error kind"),
		[]string{"kind"})
	m.aggregationLatency = auto.NewHistogram(m.histogramOpts(
		"aggregation_latency_milliseconds", "Aggregation latency in milliseconds", m.histogramBuckets))
	m.clientsPerRound = auto.NewHistogram(m.histogramOpts(
		"clients_per_aggregation", "Number of client updates consumed per aggregation", clientBuckets))
	m.vectorDimension = auto.NewGauge(m.gaugeOpts(
		"vector_dimension", "Dimension of the most recent aggregate"))
	m.clippedUpdates = auto.NewCounter(m.counterOpts(
		"clipped_updates_total", "Total number of client vectors rescaled by the clipping norm"))
	m.duplicateClientIDs = auto.NewCounter(m.counterOpts(
		"duplicate_client_ids_total", "Total number of repeated client ids seen within one aggregation"))
	m.noisedAggregations = auto.NewCounter(m.counterOpts(
		"noised_aggregations_total", "Total number of aggregates perturbed with Gaussian noise"))
	m.shardedAggregations = auto.NewCounter(m.counterOpts(
		"sharded_aggregations_total", "Total number of aggregations summed across parallel shards"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts(
		"http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts(
		"http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts(
		"errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes", "Allocated heap memory in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_milliseconds", "Average GC pause time in milliseconds", m.histogramBuckets))
}

// Manager-level recorders. The package-level functions below delegate to the
// global manager.

// RecordAggregation records a successful aggregation of clients vectors of size dim.
func (m *Manager) RecordAggregation(clients, dim int, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.aggregations.Inc()
	m.clientsPerRound.Observe(float64(clients))
	m.vectorDimension.Set(float64(dim))
	m.aggregationLatency.Observe(latencyMs)
}

// RecordAggregationError records a rejected aggregation by error kind.
func (m *Manager) RecordAggregationError(kind string) {
	if !m.enabled {
		return
	}
	m.aggregationErrors.WithLabelValues(kind).Inc()
}

// RecordClippedUpdates adds n rescaled client vectors.
func (m *Manager) RecordClippedUpdates(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.clippedUpdates.Add(float64(n))
}

// RecordDuplicateClientIDs adds n repeated client ids.
func (m *Manager) RecordDuplicateClientIDs(n int) {
	if !m.enabled || n <= 0 {
		return
	}
	m.duplicateClientIDs.Add(float64(n))
}

// RecordNoisedAggregation increments the noise counter.
func (m *Manager) RecordNoisedAggregation() {
	if !m.enabled {
		return
	}
	m.noisedAggregations.Inc()
}

// RecordShardedAggregation increments the sharded summation counter.
func (m *Manager) RecordShardedAggregation() {
	if !m.enabled {
		return
	}
	m.shardedAggregations.Inc()
}

// RecordHTTPRequest records one HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystem sets process-level gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Aggregation Metrics Functions.

// RecordAggregation records a successful aggregation on the global manager.
func RecordAggregation(clients, dim int, latencyMs float64) {
	globalManager.RecordAggregation(clients, dim, latencyMs)
}

// RecordAggregationError records a rejected aggregation by error kind.
func RecordAggregationError(kind string) {
	globalManager.RecordAggregationError(kind)
}

// RecordClippedUpdates adds n rescaled client vectors.
func RecordClippedUpdates(n int) {
	globalManager.RecordClippedUpdates(n)
}

// RecordDuplicateClientIDs adds n repeated client ids.
func RecordDuplicateClientIDs(n int) {
	globalManager.RecordDuplicateClientIDs(n)
}

// RecordNoisedAggregation increments the noise counter.
func RecordNoisedAggregation() {
	globalManager.RecordNoisedAggregation()
}

// RecordShardedAggregation increments the sharded summation counter.
func RecordShardedAggregation() {
	globalManager.RecordShardedAggregation()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records one HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// System Performance Metrics Functions.

// UpdateSystem sets process-level gauges.
func UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
