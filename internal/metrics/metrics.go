package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "random_pictures_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_db_queries_total",
			Help: "Total number of scan history database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "random_pictures_db_query_duration_seconds",
			Help:    "Scan history database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "random_pictures_indexer_runs_total",
			Help: "Total number of catalog scans started",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "random_pictures_indexer_errors_total",
			Help: "Total number of catalog scans that failed",
		},
	)

	IndexerSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_indexer_skipped_total",
			Help: "Scan requests dropped because a scan was already running",
		},
		[]string{"trigger"}, // "tick", "manual", "watch", "initial"
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_indexer_running",
			Help: "Whether a catalog scan is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_indexer_last_run_timestamp",
			Help: "Unix timestamp of the last successful scan",
		},
	)

	IndexerScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "random_pictures_indexer_scan_duration_seconds",
			Help:    "Duration of catalog scans in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Catalog metrics
var (
	CatalogGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_catalog_generation",
			Help: "Generation number of the published catalog snapshot",
		},
	)

	CatalogCategories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_catalog_categories",
			Help: "Number of categories in the published snapshot",
		},
	)

	CatalogImages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_catalog_images",
			Help: "Number of images in the published snapshot",
		},
	)

	CatalogSnapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_catalog_snapshot_age_seconds",
			Help: "Seconds since the published snapshot was scanned",
		},
	)
)

// Random selection metrics
var (
	RandomPicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_random_picks_total",
			Help: "Total number of random picks",
		},
		[]string{"scope", "status"}, // scope: "global", "category"; status: "success", "not_found", "error"
	)
)

// Response cache metrics
var (
	ResponseCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_response_cache_lookups_total",
			Help: "Response cache lookups by response kind and result",
		},
		[]string{"kind", "result"},
	)

	ResponseCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_response_cache_entries",
			Help: "Number of entries in the response cache",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "random_pictures_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_image_decode_total",
			Help: "Images decoded for thumbnails or metadata, by format",
		},
		[]string{"format"},
	)
)

// Filesystem metrics
var (
	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_filesystem_stale_errors_total",
			Help: "ESTALE errors returned by filesystem operations",
		},
		[]string{"operation"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)

	PathRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_path_rejections_total",
			Help: "Client paths rejected by validation, by reason",
		},
		[]string{"reason"},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_watcher_events_total",
			Help: "Total number of filesystem watcher events",
		},
		[]string{"event_type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "random_pictures_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Event stream metrics
var (
	EventClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_event_clients",
			Help: "Number of connected event stream clients",
		},
	)

	EventsBroadcastTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "random_pictures_events_broadcast_total",
			Help: "Events sent to stream clients, by event type",
		},
		[]string{"type"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryThrottled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "random_pictures_memory_throttled",
			Help: "1 while thumbnail rendering is refused because of memory pressure",
		},
	)

	ThumbnailsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "random_pictures_thumbnails_rejected_total",
			Help: "Thumbnail requests refused because of memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "random_pictures_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
