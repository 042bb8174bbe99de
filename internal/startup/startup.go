package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"random-pictures/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

const rule = "------------------------------------------------------------"

func section(title string, args ...interface{}) {
	logging.Info("")
	logging.Info(rule)
	logging.Info(title, args...)
	logging.Info(rule)
}

// PrintBanner prints the startup banner and system information.
func PrintBanner() {
	banner := rule + `
    ___                 __                     ____  _
   / _ \ ___ _ ___  ___/ /___  __ _    ____   / __ \(_)____ ___
  / , _// _ '// _ \/ _  // _ \/  ' \  /___/  / /_/ / // __// -_)
 /_/|_| \_,_//_//_/\_,_/ \___/_/_/_/        / .___/_/ \__/ \__/
                                           /_/
` + rule
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))

	section("SYSTEM INFORMATION")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}
}

// LogConfig prints the effective configuration.
func LogConfig(c *Config) {
	section("CONFIGURATION")
	logging.Info("  IMG_ROOT_DIR:        %s", c.RootDir)
	logging.Info("  PORT:                %s", c.Port)
	logging.Info("  METRICS_ENABLED:     %v", c.MetricsEnabled)
	if c.MetricsEnabled {
		logging.Info("  METRICS_PORT:        %s", c.MetricsPort)
	}
	logging.Info("  REFRESH_INTERVAL:    %v", c.RefreshInterval)
	logging.Info("  HOME_PAGE_SIZE:      %d", c.HomePageSize)
	logging.Info("  CATEGORY_PAGE_SIZE:  %d", c.CategoryPageSize)
	logging.Info("  IMAGE_EXTENSIONS:    %s", strings.Join(c.Extensions().List(), ","))
	logging.Info("  INCLUDE_HIDDEN:      %v", c.IncludeHidden)
	logging.Info("  CACHE_TTL:           %v", c.CacheTTL)
	logging.Info("  RESPONSE_CACHE_SIZE: %d", c.ResponseCacheSize)
	logging.Info("  WATCH_ENABLED:       %v", c.WatchEnabled)
	if c.HistoryEnabled() {
		logging.Info("  DATABASE_DIR:        %s", c.DatabaseDir)
	} else {
		logging.Info("  DATABASE_DIR:        (unset, scan history disabled)")
	}
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	logging.Info("  LOG_HEALTH_CHECKS:   %v", c.LogHealthChecks)

	if logging.IsDebugEnabled() {
		if entries, err := os.ReadDir(c.RootDir); err == nil {
			dirs, files := 0, 0
			for _, e := range entries {
				if e.IsDir() {
					dirs++
				} else {
					files++
				}
			}
			logging.Debug("  Root contents: %d directories, %d files (top level)", dirs, files)
		}
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	section("DATABASE INITIALIZATION")
	logging.Info("  [OK] Scan history at %s (%v)", path, duration)
}

// LogIndexerInit logs indexer initialization
func LogIndexerInit(interval time.Duration, watch bool) {
	section("INDEXER INITIALIZATION")
	logging.Info("  Refresh interval: %v", interval)
	if watch {
		logging.Info("  Filesystem watch: ENABLED")
	} else {
		logging.Info("  Filesystem watch: DISABLED (polling only)")
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the registered routes at debug level, grouped by prefix.
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	section("HTTP SERVER SETUP")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, group := range keys {
			logging.Debug("  [%s]", group)
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled (W3C extended format)")
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 3)
	if parts[0] == "" {
		return "root"
	}
	if parts[0] == "api" && len(parts) > 1 {
		return "api"
	}
	return parts[0]
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	section("SERVER STARTED")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	logging.Info("    Random image:  http://localhost:%s/random", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info(rule)
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(reason string) {
	section("SHUTDOWN INITIATED (%s)", reason)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
