package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"random-pictures/internal/filesystem"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"DBQueryTotal", DBQueryTotal},
		{"IndexerRunsTotal", IndexerRunsTotal},
		{"IndexerSkippedTotal", IndexerSkippedTotal},
		{"IndexerScanDuration", IndexerScanDuration},
		{"CatalogGeneration", CatalogGeneration},
		{"CatalogImages", CatalogImages},
		{"RandomPicksTotal", RandomPicksTotal},
		{"ResponseCacheLookups", ResponseCacheLookups},
		{"ThumbnailGenerationsTotal", ThumbnailGenerationsTotal},
		{"PathRejectionsTotal", PathRejectionsTotal},
		{"WatcherEventsTotal", WatcherEventsTotal},
		{"EventClients", EventClients},
		{"MemoryUsageRatio", MemoryUsageRatio},
		{"ThumbnailsRejectedTotal", ThumbnailsRejectedTotal},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestInitializeMetricsPopulatesLabels(t *testing.T) {
	InitializeMetrics()

	if got := testutil.CollectAndCount(RandomPicksTotal); got < 6 {
		t.Errorf("RandomPicksTotal series = %d, want at least 6", got)
	}
	if got := testutil.CollectAndCount(PathRejectionsTotal); got < 8 {
		t.Errorf("PathRejectionsTotal series = %d, want at least 8", got)
	}
}

func TestFilesystemObserver(t *testing.T) {
	obs := NewFilesystemObserver()

	before := testutil.ToFloat64(PathRejectionsTotal.WithLabelValues(filesystem.ReasonTraversal))
	obs.ObserveRejectedPath(filesystem.ReasonTraversal)
	if got := testutil.ToFloat64(PathRejectionsTotal.WithLabelValues(filesystem.ReasonTraversal)); got != before+1 {
		t.Errorf("PathRejectionsTotal = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(FilesystemRetryFailures.WithLabelValues("stat"))
	obs.ObserveRetryOutcome("stat", false)
	if got := testutil.ToFloat64(FilesystemRetryFailures.WithLabelValues("stat")); got != before+1 {
		t.Errorf("FilesystemRetryFailures = %v, want %v", got, before+1)
	}
}

func TestCacheObserver(t *testing.T) {
	obs := NewCacheObserver()

	before := testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("categories", "hit"))
	obs.ObserveCacheLookup("categories", true)
	if got := testutil.ToFloat64(ResponseCacheLookups.WithLabelValues("categories", "hit")); got != before+1 {
		t.Errorf("hits = %v, want %v", got, before+1)
	}
}

type mockStatsProvider struct {
	mu    sync.Mutex
	calls int
	stats Stats
}

func (m *mockStatsProvider) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectorUpdatesCatalogGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{
		Generation:   42,
		Categories:   3,
		Images:       17,
		ScannedAt:    time.Now(),
		CacheEntries: 5,
	}}

	c := NewCollector(provider, time.Hour)
	c.collect()

	if got := testutil.ToFloat64(CatalogGeneration); got != 42 {
		t.Errorf("CatalogGeneration = %v, want 42", got)
	}
	if got := testutil.ToFloat64(CatalogCategories); got != 3 {
		t.Errorf("CatalogCategories = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CatalogImages); got != 17 {
		t.Errorf("CatalogImages = %v, want 17", got)
	}
	if got := testutil.ToFloat64(ResponseCacheEntries); got != 5 {
		t.Errorf("ResponseCacheEntries = %v, want 5", got)
	}
}

func TestCollectorRun(t *testing.T) {
	provider := &mockStatsProvider{}
	c := NewCollector(provider, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if provider.callCount() < 2 {
		t.Errorf("GetStats called %d times, want at least 2", provider.callCount())
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Hour)
	c.collect()
}
