package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/catalog"
	"random-pictures/internal/database"
	"random-pictures/internal/events"
	"random-pictures/internal/filesystem"
	"random-pictures/internal/gallery"
	"random-pictures/internal/handlers"
	"random-pictures/internal/indexer"
	"random-pictures/internal/logging"
	"random-pictures/internal/media"
	"random-pictures/internal/memory"
	"random-pictures/internal/metrics"
	"random-pictures/internal/middleware"
	"random-pictures/internal/random"
	"random-pictures/internal/startup"
)

const (
	shutdownTimeout  = 30 * time.Second
	metricsInterval  = 15 * time.Second
	minWatchInterval = time.Second
)

// catalogStats feeds the metrics collector from the current snapshot.
type catalogStats struct {
	index *catalog.Index
	cache *cachepolicy.ResponseCache
}

// GetStats implements metrics.StatsProvider
func (s catalogStats) GetStats() metrics.Stats {
	snap := s.index.Current()
	stats := metrics.Stats{
		Generation: snap.Generation(),
		Categories: snap.CategoryCount(),
		Images:     snap.TotalImages(),
		ScannedAt:  snap.CreatedAt(),
	}
	if s.cache != nil {
		stats.CacheEntries = s.cache.Len()
	}
	return stats
}

func run(ctx context.Context, config *startup.Config, startTime time.Time) error {
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Both stay nil interfaces when history is disabled.
	var history indexer.ScanHistory
	var scans handlers.ScanHistory
	if config.HistoryEnabled() {
		dbStart := time.Now()
		db, err := database.New(ctx, filepath.Join(config.DatabaseDir, database.FileName))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Warn("Database close error: %v", err)
			} else {
				startup.LogShutdownStepComplete("Database closed")
			}
		}()
		startup.LogDatabaseInit(db.Path(), time.Since(dbStart))
		history, scans = db, db
	}

	index := catalog.NewIndex()

	scannerConfig := catalog.DefaultScannerConfig()
	scannerConfig.Extensions = config.Extensions()
	scannerConfig.IncludeHidden = config.IncludeHidden
	if config.ScanWorkers > 0 {
		scannerConfig.Workers = config.ScanWorkers
	}
	scanner := catalog.NewScanner(config.RootDir, scannerConfig)

	startup.LogIndexerInit(config.RefreshInterval, config.WatchEnabled)
	idx := indexer.New(scanner, index, history, config.RefreshInterval)

	var cache *cachepolicy.ResponseCache
	if config.ResponseCacheSize > 0 {
		cache = cachepolicy.NewResponseCache(config.ResponseCacheSize, config.CacheTTL)
		cache.SetObserver(metrics.NewCacheObserver())
		index.OnPublish(func(snap *catalog.Snapshot) {
			if n := cache.Purge(snap.Generation()); n > 0 {
				logging.Debug("Dropped %d cached responses from older generations", n)
			}
		})
	}

	svc := gallery.New(index, random.New(index), cache, gallery.Config{
		HomePageSize:     config.HomePageSize,
		CategoryPageSize: config.CategoryPageSize,
	})

	validator, err := filesystem.NewValidator(config.RootDir, config.Extensions())
	if err != nil {
		return fmt.Errorf("failed to initialize path validator: %w", err)
	}

	monitor := memory.NewMonitor(memory.DefaultConfig())
	thumbnailer := media.NewThumbnailer(config.ThumbnailWorkers)
	if monitor.Enabled() {
		thumbnailer.SetPressure(monitor)
	}

	hub := events.NewHub()
	hub.Subscribe(index)

	h := handlers.New(handlers.Deps{
		Gallery:     svc,
		Validator:   validator,
		Thumbnailer: thumbnailer,
		Indexer:     idx,
		History:     scans,
		Events:      hub,
	}, config.CacheTTL)

	router := mux.NewRouter()
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	// No write timeout: the event stream and large images are long-lived.
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           handlers.MetricsMux(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return idx.Run(gctx)
	})

	if config.WatchEnabled {
		watcher := indexer.NewWatcher(config.RootDir, minWatchInterval, func() {
			idx.TriggerIndex(indexer.TriggerWatch)
		})
		g.Go(func() error {
			// Polling alone keeps the catalog fresh, so a watcher failure
			// is not fatal.
			if err := watcher.Run(gctx); err != nil {
				logging.Warn("Filesystem watch disabled, polling only: %v", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return hub.Run(gctx)
	})

	g.Go(func() error {
		return monitor.Run(gctx)
	})

	collector := metrics.NewCollector(catalogStats{index: index, cache: cache}, metricsInterval)
	g.Go(func() error {
		return collector.Run(gctx)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if metricsSrv != nil {
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		reason := "component stopped"
		select {
		case sig := <-quit:
			reason = sig.String()
		case <-gctx.Done():
		}

		startup.LogShutdownInitiated(reason)
		cancel()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logging.Warn("Metrics server shutdown error: %v", err)
			} else {
				startup.LogShutdownStepComplete("Metrics server stopped")
			}
		}
		return nil
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	err = g.Wait()
	startup.LogShutdownStepComplete("Indexer, watcher and event hub stopped")
	if err != nil {
		logging.Error("Application error: %v", err)
		return err
	}

	startup.LogShutdownComplete()
	return nil
}
