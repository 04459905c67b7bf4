package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_library_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_library_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_library_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_library_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

// Reconciler metrics
var (
	RefreshRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_library_refresh_runs_total",
			Help: "Total number of library refresh runs",
		},
	)

	RefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_library_refresh_errors_total",
			Help: "Total number of failed library refresh runs",
		},
	)

	RefreshLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_library_refresh_last_run_timestamp",
			Help: "Timestamp of the last completed refresh run",
		},
	)

	RefreshLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_library_refresh_last_run_duration_seconds",
			Help: "Duration of the last refresh run in seconds",
		},
	)

	RefreshIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_library_refresh_running",
			Help: "Whether a refresh is currently running (1 = running, 0 = idle)",
		},
	)

	RefreshDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_refresh_decisions_total",
			Help: "Reconciliation decisions applied, by kind",
		},
		[]string{"decision"},
	)
)

// Archive streaming metrics
var (
	ArchiveStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_archive_streams_total",
			Help: "Total number of archive download streams, by outcome",
		},
		[]string{"outcome"},
	)

	ArchiveBytesStreamed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_library_archive_bytes_streamed_total",
			Help: "Total bytes of archive data sent to clients",
		},
	)

	ArchiveStreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_library_archive_stream_duration_seconds",
			Help:    "Archive stream duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
	)
)

// Preview cache metrics
var (
	PreviewGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_preview_generations_total",
			Help: "Total number of preview generations, by status",
		},
		[]string{"status"},
	)

	PreviewEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_library_preview_evictions_total",
			Help: "Total number of stale preview cache entries removed",
		},
	)
)

// Upload metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_uploads_total",
			Help: "Total number of upload requests, by status",
		},
		[]string{"status"},
	)

	UploadBytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_library_upload_bytes_received_total",
			Help: "Total bytes of upload payload received",
		},
	)
)

// Worker pool metrics
var (
	WorkerSlotsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_library_worker_slots_in_use",
			Help: "Worker slots currently held, by pool",
		},
		[]string{"pool"},
	)

	WorkerAcquireWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_library_worker_acquire_wait_seconds",
			Help:    "Time spent waiting for a worker slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"pool"},
	)
)

// Filesystem retry metrics for libraries on network mounts
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_fs_retry_attempts_total",
			Help: "Filesystem operations retried after a stale handle",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_fs_retry_success_total",
			Help: "Filesystem operations that succeeded on retry",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_fs_retry_failures_total",
			Help: "Filesystem operations that failed after all retries",
		},
		[]string{"operation"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_library_fs_stale_errors_total",
			Help: "Stale file handle errors observed, by operation",
		},
		[]string{"operation"},
	)
)
