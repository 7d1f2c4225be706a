package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_frame_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picture_frame_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Catalog store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_frame_db_queries_total",
			Help: "Total number of catalog database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picture_frame_db_query_duration_seconds",
			Help:    "Catalog database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "picture_frame_db_transaction_duration_seconds",
			Help:    "Catalog database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"result"}, // "commit" or "rollback"
	)

	CatalogImages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_catalog_images",
			Help: "Number of images currently in the catalog",
		},
	)

	CatalogAlbums = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_catalog_albums",
			Help: "Number of distinct albums currently in the catalog",
		},
	)
)

// Scanner metrics
var (
	ScannerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_scanner_runs_total",
			Help: "Total number of media scans",
		},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_scanner_errors_total",
			Help: "Total number of failed media scans",
		},
	)

	ScannerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_scanner_running",
			Help: "Whether a media scan is currently in progress (0 or 1)",
		},
	)

	ScannerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_scanner_last_run_timestamp",
			Help: "Timestamp of the last completed media scan",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "picture_frame_scanner_last_run_duration_seconds",
			Help: "Duration of the last media scan in seconds",
		},
	)

	ScannerImagesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_scanner_images_added_total",
			Help: "Total number of images added to the catalog by scans",
		},
	)

	ScannerImagesRetired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_scanner_images_retired_total",
			Help: "Total number of images retired from the catalog by scans",
		},
	)

	ScannerFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_scanner_files_skipped_total",
			Help: "Total number of files skipped by scans due to per-file errors",
		},
	)
)

// Rotation metrics
var (
	RotationPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "picture_frame_rotation_picks_total",
			Help: "Total number of next-image selections",
		},
		[]string{"status"}, // "ok", "empty", "error"
	)

	RotationCycleResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_rotation_cycle_resets_total",
			Help: "Total number of rotation cycle resets after scope exhaustion",
		},
	)

	RotationHistoryResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_rotation_history_resets_total",
			Help: "Total number of explicit history resets",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_watcher_events_total",
			Help: "Total number of filesystem events observed on media roots",
		},
	)

	WatcherRescansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "picture_frame_watcher_rescans_total",
			Help: "Total number of rescans triggered by filesystem events",
		},
	)
)
