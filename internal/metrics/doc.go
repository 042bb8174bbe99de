// Package metrics provides Prometheus instrumentation for random-pictures.
//
// All metrics are prefixed with "random_pictures_" and registered on the
// default registry through promauto, so importing the package is enough to
// export them on /metrics.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: requests by method, normalized path and status
//   - HTTPRequestDuration: request duration by method and path
//   - HTTPRequestsInFlight: requests currently being served
//
// ## Indexer and Catalog Metrics
//
// The scheduler updates the indexer metrics around every scan. The catalog
// gauges are refreshed by the Collector from a StatsProvider:
//   - IndexerRunsTotal, IndexerErrors, IndexerScanDuration
//   - IndexerSkippedTotal: scans dropped because one was already in flight
//   - CatalogGeneration, CatalogCategories, CatalogImages, CatalogSnapshotAge
//
// ## Query Metrics
//
//   - RandomPicksTotal: random picks by scope and status
//   - ResponseCacheLookups, ResponseCacheEntries
//
// ## Filesystem Metrics
//
// Recorded through filesystem.Observer (see NewFilesystemObserver), which
// keeps the filesystem package free of Prometheus imports:
//   - FilesystemStaleErrors, FilesystemRetrySuccess, FilesystemRetryFailures
//   - PathRejectionsTotal: client paths refused by reason
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	collector := metrics.NewCollector(provider, 30*time.Second)
//	g.Go(func() error { return collector.Run(ctx) })
package metrics
