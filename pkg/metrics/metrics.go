package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Persistence metrics
	DocumentsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "collabd_documents_open",
			Help: "Number of documents persisted for the configured uid",
		},
	)

	UpdatesPushedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collabd_persistence_updates_pushed_total",
			Help: "Total number of update rows appended across all documents",
		},
	)

	FlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collabd_persistence_flush_duration_seconds",
			Help:    "Time taken to flush a document's update log into a single state row",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collabd_persistence_snapshots_total",
			Help: "Total number of snapshots created",
		},
	)

	// Row block loader metrics
	RowCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "collabd_rowblock_cache_size",
			Help: "Number of row handles currently cached by the row block loader",
		},
	)

	RowBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_rowblock_builds_total",
			Help: "Total number of row build calls issued to the collab service, by outcome",
		},
		[]string{"outcome"},
	)

	RowBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collabd_rowblock_build_duration_seconds",
			Help:    "Time taken for a single row build call",
			Buckets: prometheus.DefBuckets,
		},
	)

	RowCacheDedupedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collabd_rowblock_dedup_total",
			Help: "Total number of get_or_init_database_row calls that joined an in-flight build instead of starting one",
		},
	)

	// Sync protocol metrics
	SyncSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "collabd_sync_sessions_active",
			Help: "Number of active sync sessions",
		},
	)

	SyncMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_sync_messages_total",
			Help: "Total number of sync protocol messages processed, by direction and message type",
		},
		[]string{"direction", "type"},
	)

	SyncDecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collabd_sync_decode_errors_total",
			Help: "Total number of sync messages that failed to decode or apply",
		},
	)

	// Entity projection metrics
	EntityMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collabd_entity_mutations_total",
			Help: "Total number of typed entity mutations, by entity kind and operation",
		},
		[]string{"entity", "op"},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsOpen,
		UpdatesPushedTotal,
		FlushDuration,
		SnapshotsTotal,
		RowCacheSize,
		RowBuildsTotal,
		RowBuildDuration,
		RowCacheDedupedTotal,
		SyncSessionsActive,
		SyncMessagesTotal,
		SyncDecodeErrorsTotal,
		EntityMutationsTotal,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
