// Package main provides the entry point for the random-pictures service.
//
// random-pictures serves random and paginated images from a directory tree
// where every subdirectory of the root is a category. The catalog is kept in
// memory as an immutable snapshot that a background scheduler rebuilds every
// refresh interval, so requests never walk the filesystem.
//
// # Application Lifecycle
//
//  1. Memory Configuration: sets GOMEMLIMIT from MEMORY_LIMIT and MEMORY_RATIO
//  2. Configuration Loading: defaults, the optional YAML file, environment
//     variables and flags, then validation
//  3. Database Initialization: opens the SQLite scan history (if enabled)
//  4. Component Initialization:
//     - Catalog index, scanner and refresh scheduler
//     - Response cache, purged on every publish
//     - Thumbnailer, throttled by the memory monitor
//     - Publish event hub
//  5. HTTP Server Setup: routes, metrics, access log and gzip middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stop every component
//
// # Background Services
//
//   - Refresh scheduler: rescans the root every REFRESH_INTERVAL, dropping
//     ticks while a scan runs
//   - Filesystem watcher: requests an early rescan on changes (WATCH_ENABLED)
//   - Event hub: pushes a message to websocket clients on each publish
//   - Memory monitor: pauses thumbnail rendering near the memory limit
//   - Metrics collector: refreshes catalog gauges
//
// # HTTP Server
//
// The application runs two HTTP servers:
//
//  1. Main Server (default port 8081): random images, listings, image bytes,
//     thumbnails, stats, scan history and health probes
//  2. Metrics Server (default port 9090, optional): Prometheus /metrics
//
// # Usage
//
//	random-pictures --config /etc/random-pictures.yaml --root /srv/pictures
//
// Flags override environment variables, which override the config file.
// See [random-pictures/internal/startup] for every setting.
package main
