package metrics

import (
	"context"
	"time"

	"random-pictures/internal/logging"
)

// StatsProvider reports the catalog figures exported as gauges.
type StatsProvider interface {
	GetStats() Stats
}

// Stats is a point-in-time view of the published catalog.
type Stats struct {
	Generation   uint64
	Categories   int
	Images       int
	ScannedAt    time.Time
	CacheEntries int
}

// Collector refreshes the catalog gauges on a fixed interval. The snapshot
// age gauge keeps growing between scans, so it cannot be set only on
// publish.
type Collector struct {
	provider StatsProvider
	interval time.Duration
}

// NewCollector returns a collector polling provider every interval.
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{provider: provider, interval: interval}
}

// Run collects once immediately and then on every tick until ctx is done.
func (c *Collector) Run(ctx context.Context) error {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()

	CatalogGeneration.Set(float64(stats.Generation))
	CatalogCategories.Set(float64(stats.Categories))
	CatalogImages.Set(float64(stats.Images))
	ResponseCacheEntries.Set(float64(stats.CacheEntries))
	if !stats.ScannedAt.IsZero() {
		CatalogSnapshotAge.Set(time.Since(stats.ScannedAt).Seconds())
	}

	logging.Debug("Catalog gauges: generation=%d categories=%d images=%d cached=%d",
		stats.Generation, stats.Categories, stats.Images, stats.CacheEntries)
}
