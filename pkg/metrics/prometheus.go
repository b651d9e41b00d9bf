// Package metrics provides Prometheus metrics for the habitflow pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the pipeline reports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	runBuckets       []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Intake
	rowsRead      prometheus.Counter
	rowsDuplicate prometheus.Counter

	// Per-record outcome
	recordsProcessed prometheus.Counter
	recordsRejected  *prometheus.CounterVec
	rollovers        *prometheus.CounterVec
	unknownEvents    *prometheus.CounterVec
	recordLatency    prometheus.Histogram

	// Batch runs
	runDuration prometheus.Histogram
	runsTotal   *prometheus.CounterVec

	// Queue and workers
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry backing globalManager

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Collectors are registered on the
// configured registry, which defaults to prometheus.DefaultRegisterer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "habitflow",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		runBuckets:       prometheus.DefBuckets,
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

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.rowsRead = auto.NewCounter(m.counterOpts(
		"rows_read_total", "Rows handed over by the source resolver"))
	m.rowsDuplicate = auto.NewCounter(m.counterOpts(
		"rows_duplicate_total", "Rows dropped because their date was already seen"))

	m.recordsProcessed = auto.NewCounter(m.counterOpts(
		"records_processed_total", "Records that went through every stage"))
	m.recordsRejected = auto.NewCounterVec(m.counterOpts(
		"records_rejected_total", "Rows rejected, by reason"), []string{"reason"})
	m.rollovers = auto.NewCounterVec(m.counterOpts(
		"rollovers_total", "Event timestamps moved to the next day, by event"), []string{"event"})
	m.unknownEvents = auto.NewCounterVec(m.counterOpts(
		"unknown_events_total", "Events whose clock time decoded to unknown, by event"), []string{"event"})
	m.recordLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "record_latency_milliseconds",
		Help:        "Time spent normalizing a single record",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Wall time of a complete batch run",
		Buckets:     m.runBuckets,
		ConstLabels: m.constLabels,
	})
	m.runsTotal = auto.NewCounterVec(m.counterOpts(
		"runs_total", "Batch runs, by outcome"), []string{"outcome"})

	m.queueSize = auto.NewGauge(m.gaugeOpts(
		"queue_size", "Rows waiting in the job queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts(
		"queue_capacity", "Capacity of the job queue"))
	m.workerCount = auto.NewGauge(m.gaugeOpts(
		"worker_count", "Workers normalizing records"))
}

// RecordRowsRead adds n to the rows read counter.
func RecordRowsRead(n int) {
	globalManager.rowsRead.Add(float64(n))
}

// RecordRowDuplicate counts a row skipped by date deduplication.
func RecordRowDuplicate() {
	globalManager.rowsDuplicate.Inc()
}

// RecordRecordProcessed counts a record that completed every stage.
func RecordRecordProcessed() {
	globalManager.recordsProcessed.Inc()
}

// RecordRecordRejected counts a rejected row under the given reason.
func RecordRecordRejected(reason string) {
	globalManager.recordsRejected.WithLabelValues(reason).Inc()
}

// RecordRollover counts a timestamp moved forward by one day.
func RecordRollover(event string) {
	globalManager.rollovers.WithLabelValues(event).Inc()
}

// RecordUnknownEvent counts an event with no usable clock time.
func RecordUnknownEvent(event string) {
	globalManager.unknownEvents.WithLabelValues(event).Inc()
}

// RecordRecordLatency observes the per-record latency in milliseconds.
func RecordRecordLatency(latencyMs float64) {
	globalManager.recordLatency.Observe(latencyMs)
}

// RecordRun observes a finished batch run.
func RecordRun(outcome string, seconds float64) {
	globalManager.runsTotal.WithLabelValues(outcome).Inc()
	globalManager.runDuration.Observe(seconds)
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the number of active workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry in the Prometheus text format, suitable
// for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return ErrNoTextfile
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteTextfile, err)
	}
	return nil
}
