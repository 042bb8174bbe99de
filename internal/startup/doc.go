// Package startup loads configuration and prints the startup and shutdown
// log sections.
//
// # Configuration
//
// [LoadConfig] layers its sources, later ones winning:
//
//  1. built-in defaults ([DefaultConfig])
//  2. an optional YAML file, with ${VAR} references expanded
//  3. environment variables
//  4. command-line flag overrides
//
// Environment variables:
//
//   - IMG_ROOT_DIR: image root; each subdirectory is a category (default: /app/images)
//   - PORT: HTTP server port (default: 8081)
//   - METRICS_PORT: Prometheus metrics port (default: 9090)
//   - METRICS_ENABLED: serve /metrics (default: true)
//   - REFRESH_INTERVAL: catalog rescan interval as a Go duration (default: 3s)
//   - HOME_PAGE_SIZE: categories per page (default: 6)
//   - CATEGORY_PAGE_SIZE: images per page (default: 6)
//   - IMAGE_EXTENSIONS: comma separated allow-list (default: jpg,jpeg,png,gif,webp)
//   - INCLUDE_HIDDEN: index dot-prefixed entries (default: false)
//   - CACHE_TTL: max-age of cacheable responses (default: 168h)
//   - RESPONSE_CACHE_SIZE: in-memory rendered response entries, 0 disables (default: 1024)
//   - WATCH_ENABLED: use filesystem notifications to rescan early (default: true)
//   - DATABASE_DIR: scan history database directory, empty disables (default: /app/data)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_HEALTH_CHECKS: include health probes in the access log (default: true)
//   - SCAN_WORKERS, THUMBNAIL_WORKERS: pool size overrides (default: from GOMAXPROCS)
//
// The YAML file uses the same names in snake case:
//
//	root_dir: ${HOME}/Pictures
//	refresh_interval: 10s
//	image_extensions: [jpg, png]
//
// A value that does not parse, a page size below 1, a non-positive refresh
// interval or a root that is not a directory yields a [*ConfigError] and the
// service does not start.
//
// # Build Information
//
// Version, Commit and BuildTime are injected with -ldflags and exposed via
// [GetBuildInfo].
package startup
