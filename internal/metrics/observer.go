package metrics

import (
	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/filesystem"
)

// filesystemObserver implements filesystem.Observer using the Prometheus
// metrics declared in this package.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer that records filesystem metrics
// into the Prometheus counters declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveStaleError(op string) {
	FilesystemStaleErrors.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRetryOutcome(op string, success bool) {
	if success {
		FilesystemRetrySuccess.WithLabelValues(op).Inc()
		return
	}
	FilesystemRetryFailures.WithLabelValues(op).Inc()
}

func (o *filesystemObserver) ObserveRejectedPath(reason string) {
	PathRejectionsTotal.WithLabelValues(reason).Inc()
}

// cacheObserver implements cachepolicy.Observer.
type cacheObserver struct{}

// NewCacheObserver creates an observer that counts response cache lookups.
func NewCacheObserver() cachepolicy.Observer {
	return &cacheObserver{}
}

func (o *cacheObserver) ObserveCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	ResponseCacheLookups.WithLabelValues(kind, result).Inc()
}
