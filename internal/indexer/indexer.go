package indexer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"random-pictures/internal/catalog"
	"random-pictures/internal/database"
	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"
)

// DefaultInterval is the refresh interval used when none is configured.
const DefaultInterval = 3 * time.Second

// Keep this many rows of scan history.
const historyLimit = 1000

// Prune history every this many recorded scans.
const pruneEvery = 100

// Reasons a scan was requested.
const (
	TriggerInitial = "initial"
	TriggerTick    = "tick"
	TriggerManual  = "manual"
	TriggerWatch   = "watch"
)

// Scanner builds a new snapshot from disk.
type Scanner interface {
	Scan(ctx context.Context) (*catalog.Snapshot, error)
}

// ScanHistory persists the outcome of every scan.
type ScanHistory interface {
	RecordScan(ctx context.Context, rec database.ScanRecord) error
	PruneScans(ctx context.Context, keep int) (int64, error)
}

// Indexer is the refresh scheduler. It runs the scanner on a fixed interval
// and publishes each successful result. A request that arrives while a scan
// is running is dropped, never queued.
type Indexer struct {
	scanner  Scanner
	index    *catalog.Index
	history  ScanHistory
	interval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup

	// lifecycleMu orders wg.Add against Stop.
	lifecycleMu sync.Mutex
	stopped     bool

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	lastScanDuration     time.Duration
	initialIndexComplete bool
	initialIndexError    error
	lastError            error
	startTime            time.Time

	scansTotal   atomic.Int64
	scanErrors   atomic.Int64
	skippedScans atomic.Int64
	recorded     atomic.Int64

	onIndexComplete func(*catalog.Snapshot)
}

// New creates an Indexer. history may be nil.
func New(scanner Scanner, index *catalog.Index, history ScanHistory, interval time.Duration) *Indexer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		scanner:   scanner,
		index:     index,
		history:   history,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
		stopChan:  make(chan struct{}),
		startTime: time.Now(),
	}
}

// SetOnIndexComplete sets a callback invoked with each published snapshot.
func (idx *Indexer) SetOnIndexComplete(callback func(*catalog.Snapshot)) {
	idx.onIndexComplete = callback
}

// Interval returns the refresh interval.
func (idx *Indexer) Interval() time.Duration {
	return idx.interval
}

// Start runs an initial scan in the background and begins the periodic
// refresh loop.
func (idx *Indexer) Start() {
	idx.lifecycleMu.Lock()
	defer idx.lifecycleMu.Unlock()
	if idx.stopped {
		return
	}
	idx.wg.Add(2)

	go func() {
		defer idx.wg.Done()
		logging.Info("Starting initial catalog scan...")
		if _, err := idx.Index(TriggerInitial); err != nil {
			logging.Error("Initial scan error: %v", err)
			idx.indexMu.Lock()
			idx.initialIndexError = err
			idx.indexMu.Unlock()
		}
	}()

	go func() {
		defer idx.wg.Done()
		idx.periodicIndex()
	}()
}

// Run starts the indexer and blocks until ctx is done, then stops it.
func (idx *Indexer) Run(ctx context.Context) error {
	idx.Start()
	<-ctx.Done()
	idx.Stop()
	return nil
}

// Stop ends the refresh loop, cancels an in-flight scan and waits for
// background goroutines to exit. It is safe to call more than once.
func (idx *Indexer) Stop() {
	idx.lifecycleMu.Lock()
	if !idx.stopped {
		idx.stopped = true
		close(idx.stopChan)
		idx.cancel()
	}
	idx.lifecycleMu.Unlock()

	idx.wg.Wait()
}

// Index runs one scan-and-publish cycle unless a scan is already running.
// It reports whether this call ran the scan. A scan failure is returned,
// logged and counted; the current snapshot is left in place.
func (idx *Indexer) Index(trigger string) (bool, error) {
	if !idx.tryStartIndexing() {
		idx.skippedScans.Add(1)
		metrics.IndexerSkippedTotal.WithLabelValues(trigger).Inc()
		logging.Debug("Scan already in progress, dropping %s request", trigger)
		return false, nil
	}

	metrics.IndexerIsRunning.Set(1)
	defer metrics.IndexerIsRunning.Set(0)
	metrics.IndexerRunsTotal.Inc()
	idx.scansTotal.Add(1)

	startTime := time.Now()
	snap, err := idx.scanner.Scan(idx.ctx)
	duration := time.Since(startTime)
	metrics.IndexerScanDuration.Observe(duration.Seconds())

	if err != nil {
		idx.finishIndexing(startTime, duration, err)
		idx.scanErrors.Add(1)
		metrics.IndexerErrors.Inc()
		if !errors.Is(err, context.Canceled) {
			logging.Error("Catalog scan failed (%s): %v", trigger, err)
		}
		idx.record(trigger, startTime, duration, nil, err)
		return true, err
	}

	published := idx.index.Publish(snap)
	idx.finishIndexing(startTime, duration, nil)

	metrics.IndexerLastRunTimestamp.Set(float64(time.Now().Unix()))
	metrics.CatalogGeneration.Set(float64(published.Generation()))
	metrics.CatalogCategories.Set(float64(published.CategoryCount()))
	metrics.CatalogImages.Set(float64(published.TotalImages()))

	logging.Debug("Published generation %d (%s): %d categories, %d images in %v",
		published.Generation(), trigger, published.CategoryCount(), published.TotalImages(), duration)

	idx.record(trigger, startTime, duration, published, nil)

	if idx.onIndexComplete != nil {
		idx.onIndexComplete(published)
	}
	return true, nil
}

// TriggerIndex requests a scan in the background. It is dropped if a scan
// is already running.
func (idx *Indexer) TriggerIndex(trigger string) {
	idx.lifecycleMu.Lock()
	defer idx.lifecycleMu.Unlock()
	if idx.stopped {
		return
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		if _, err := idx.Index(trigger); err != nil {
			logging.Debug("%s scan failed: %v", trigger, err)
		}
	}()
}

func (idx *Indexer) periodicIndex() {
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	logging.Info("Catalog refresh every %v", idx.interval)

	for {
		select {
		case <-ticker.C:
			// Ticks that arrive while scanning are dropped inside Index.
			if _, err := idx.Index(TriggerTick); err != nil {
				logging.Debug("periodic scan failed: %v", err)
			}
		case <-idx.stopChan:
			logging.Info("Catalog refresh stopped")
			return
		}
	}
}

func (idx *Indexer) record(trigger string, started time.Time, duration time.Duration, snap *catalog.Snapshot, scanErr error) {
	if idx.history == nil {
		return
	}

	rec := database.ScanRecord{
		StartedAt: started,
		Duration:  database.Duration(duration),
		Trigger:   trigger,
	}
	if snap != nil {
		rec.Generation = snap.Generation()
		rec.Categories = snap.CategoryCount()
		rec.Images = snap.TotalImages()
	}
	if scanErr != nil {
		rec.Error = scanErr.Error()
	}

	// History must outlive a cancelled scan context.
	ctx := context.Background()
	if err := idx.history.RecordScan(ctx, rec); err != nil {
		logging.Warn("Failed to record scan history: %v", err)
		return
	}

	if idx.recorded.Add(1)%pruneEvery == 0 {
		if removed, err := idx.history.PruneScans(ctx, historyLimit); err != nil {
			logging.Warn("Failed to prune scan history: %v", err)
		} else if removed > 0 {
			logging.Debug("Pruned %d scan history rows", removed)
		}
	}
}

// tryStartIndexing attempts to start indexing, returns false if already in progress.
func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	return true
}

// finishIndexing marks indexing as complete.
func (idx *Indexer) finishIndexing(started time.Time, duration time.Duration, err error) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	idx.lastScanDuration = duration
	idx.lastError = err
	if err == nil {
		idx.lastIndexTime = started
		idx.initialIndexComplete = true
		idx.initialIndexError = nil
	}
}

// IsReady reports whether at least one snapshot has been published.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// IsIndexing returns whether a scan is currently in progress.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// LastIndexTime returns the start time of the last successful scan.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready             bool      `json:"ready"`
	Indexing          bool      `json:"indexing"`
	StartTime         time.Time `json:"startTime"`
	Uptime            string    `json:"uptime"`
	LastIndexed       time.Time `json:"lastIndexed,omitempty"`
	LastScanDuration  string    `json:"lastScanDuration,omitempty"`
	InitialIndexError string    `json:"initialIndexError,omitempty"`
	LastError         string    `json:"lastError,omitempty"`
	RefreshInterval   string    `json:"refreshInterval"`
	Generation        uint64    `json:"generation"`
	Categories        int       `json:"categories"`
	Images            int       `json:"images"`
	ScansTotal        int64     `json:"scansTotal"`
	ScanErrors        int64     `json:"scanErrors"`
	SkippedScans      int64     `json:"skippedScans"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	snap := idx.index.Current()

	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	status := HealthStatus{
		Ready:           idx.initialIndexComplete,
		Indexing:        idx.isIndexing,
		StartTime:       idx.startTime,
		Uptime:          time.Since(idx.startTime).Round(time.Second).String(),
		LastIndexed:     idx.lastIndexTime,
		RefreshInterval: idx.interval.String(),
		Generation:      snap.Generation(),
		Categories:      snap.CategoryCount(),
		Images:          snap.TotalImages(),
		ScansTotal:      idx.scansTotal.Load(),
		ScanErrors:      idx.scanErrors.Load(),
		SkippedScans:    idx.skippedScans.Load(),
	}

	if idx.lastScanDuration > 0 {
		status.LastScanDuration = idx.lastScanDuration.String()
	}
	if idx.initialIndexError != nil {
		status.InitialIndexError = idx.initialIndexError.Error()
	}
	if idx.lastError != nil {
		status.LastError = idx.lastError.Error()
	}

	return status
}
