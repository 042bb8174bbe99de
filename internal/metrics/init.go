package metrics

import "random-pictures/internal/filesystem"

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"insert_scan", "recent_scans", "prune_scans", "initialize_schema"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, trigger := range []string{"initial", "tick", "manual", "watch"} {
		IndexerSkippedTotal.WithLabelValues(trigger)
	}

	for _, scope := range []string{"global", "category"} {
		for _, status := range []string{"success", "not_found", "error"} {
			RandomPicksTotal.WithLabelValues(scope, status)
		}
	}

	for _, kind := range []string{"categories", "category", "images", "thumbnail", "image_info"} {
		ResponseCacheLookups.WithLabelValues(kind, "hit")
		ResponseCacheLookups.WithLabelValues(kind, "miss")
	}

	for _, status := range []string{"success", "error", "error_decode", "error_encode"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "unknown"} {
		ImageDecodeByFormat.WithLabelValues(format)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemStaleErrors.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, reason := range []string{
		filesystem.ReasonEmpty, filesystem.ReasonNullByte,
		filesystem.ReasonAbsolute, filesystem.ReasonTraversal, filesystem.ReasonExtension,
		filesystem.ReasonOutside, filesystem.ReasonSymlink,
	} {
		PathRejectionsTotal.WithLabelValues(reason)
	}

	for _, event := range []string{"create", "remove", "rename", "write", "chmod"} {
		WatcherEventsTotal.WithLabelValues(event)
	}

	EventsBroadcastTotal.WithLabelValues("published")
}
