package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"random-pictures/internal/catalog"
	"random-pictures/internal/database"
)

// blockingScanner blocks each Scan until release is closed.
type blockingScanner struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingScanner() *blockingScanner {
	return &blockingScanner{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *blockingScanner) Scan(ctx context.Context) (*catalog.Snapshot, error) {
	s.calls.Add(1)
	s.started <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return catalog.EmptySnapshot(), nil
}

type failingScanner struct{ err error }

func (s failingScanner) Scan(context.Context) (*catalog.Snapshot, error) {
	return nil, s.err
}

type memoryHistory struct {
	mu      sync.Mutex
	records []database.ScanRecord
}

func (h *memoryHistory) RecordScan(_ context.Context, rec database.ScanRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *memoryHistory) PruneScans(context.Context, int) (int64, error) { return 0, nil }

func (h *memoryHistory) all() []database.ScanRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]database.ScanRecord(nil), h.records...)
}

func writeImage(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestIndexPublishesSnapshot(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cats/1.jpg")
	writeImage(t, root, "cats/2.png")

	idx := catalog.NewIndex()
	history := &memoryHistory{}
	ix := New(catalog.NewScanner(root, catalog.DefaultScannerConfig()), idx, history, time.Hour)

	var completed *catalog.Snapshot
	ix.SetOnIndexComplete(func(s *catalog.Snapshot) { completed = s })

	ran, err := ix.Index(TriggerManual)
	if err != nil || !ran {
		t.Fatalf("Index() = %v, %v", ran, err)
	}

	snap := idx.Current()
	if snap.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", snap.Generation())
	}
	if snap.TotalImages() != 2 {
		t.Errorf("TotalImages = %d, want 2", snap.TotalImages())
	}
	if completed != snap {
		t.Error("OnIndexComplete did not receive the published snapshot")
	}
	if !ix.IsReady() {
		t.Error("IsReady() = false after a successful scan")
	}

	records := history.all()
	if len(records) != 1 || records[0].Trigger != TriggerManual || records[0].Images != 2 {
		t.Errorf("history = %+v", records)
	}
}

func TestIndexDropsOverlappingRequests(t *testing.T) {
	scanner := newBlockingScanner()
	ix := New(scanner, catalog.NewIndex(), nil, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := ix.Index(TriggerTick); err != nil {
			t.Errorf("Index() error: %v", err)
		}
	}()

	<-scanner.started
	if !ix.IsIndexing() {
		t.Error("IsIndexing() = false during a scan")
	}

	for i := 0; i < 5; i++ {
		ran, err := ix.Index(TriggerTick)
		if ran || err != nil {
			t.Errorf("overlapping Index() = %v, %v; want dropped", ran, err)
		}
	}

	close(scanner.release)
	<-done

	if got := scanner.calls.Load(); got != 1 {
		t.Errorf("scanner called %d times, want 1", got)
	}
	if got := ix.GetHealthStatus().SkippedScans; got != 5 {
		t.Errorf("SkippedScans = %d, want 5", got)
	}
	if ix.IsIndexing() {
		t.Error("IsIndexing() = true after the scan finished")
	}
}

func TestIndexFailureKeepsPreviousSnapshot(t *testing.T) {
	idx := catalog.NewIndex()
	previous := idx.Publish(catalog.NewSnapshot([]catalog.Category{
		{Name: "cats", Images: []catalog.ImageEntry{{Name: "1.jpg"}}},
	}, time.Now()))

	scanErr := &catalog.ScanError{Root: "/pics", Err: os.ErrPermission}
	history := &memoryHistory{}
	ix := New(failingScanner{err: scanErr}, idx, history, time.Hour)

	ran, err := ix.Index(TriggerTick)
	if !ran || !errors.Is(err, catalog.ErrScan) {
		t.Fatalf("Index() = %v, %v; want ScanError", ran, err)
	}

	if idx.Current() != previous {
		t.Error("a failed scan replaced the current snapshot")
	}

	status := ix.GetHealthStatus()
	if status.ScanErrors != 1 || status.LastError == "" {
		t.Errorf("health = %+v", status)
	}

	records := history.all()
	if len(records) != 1 || records[0].Succeeded() {
		t.Errorf("history = %+v", records)
	}

	// No backoff: the next attempt runs straight away.
	if ran, _ := ix.Index(TriggerTick); !ran {
		t.Error("second Index() after failure was not run")
	}
}

func TestRefreshPicksUpAddedAndRemovedCategories(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cats/1.jpg")

	idx := catalog.NewIndex()
	ix := New(catalog.NewScanner(root, catalog.DefaultScannerConfig()), idx, nil, 20*time.Millisecond)
	ix.Start()
	defer ix.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, ok := idx.Current().Category("cats")
		return ok
	})

	writeImage(t, root, "dogs/1.jpg")
	writeImage(t, root, "dogs/2.jpg")

	waitFor(t, 2*time.Second, func() bool {
		dogs, ok := idx.Current().Category("dogs")
		return ok && dogs.Count() == 2
	})

	if err := os.RemoveAll(filepath.Join(root, "cats")); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		_, ok := idx.Current().Category("cats")
		return !ok
	})

	if idx.Current().TotalImages() != 2 {
		t.Errorf("TotalImages = %d, want 2", idx.Current().TotalImages())
	}
}

func TestStopCancelsInFlightScan(t *testing.T) {
	scanner := newBlockingScanner()
	ix := New(scanner, catalog.NewIndex(), nil, time.Hour)
	ix.Start()

	<-scanner.started

	stopped := make(chan struct{})
	go func() {
		ix.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}

	// Further requests after Stop are ignored.
	ix.TriggerIndex(TriggerManual)
	ix.Stop()
}

func TestTriggerIndex(t *testing.T) {
	root := t.TempDir()
	writeImage(t, root, "cats/1.jpg")

	idx := catalog.NewIndex()
	ix := New(catalog.NewScanner(root, catalog.DefaultScannerConfig()), idx, nil, time.Hour)
	defer ix.Stop()

	ix.TriggerIndex(TriggerManual)

	waitFor(t, 2*time.Second, func() bool { return idx.Generation() >= 1 })
}

func TestNewDefaultsInterval(t *testing.T) {
	ix := New(failingScanner{}, catalog.NewIndex(), nil, 0)
	if ix.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", ix.Interval(), DefaultInterval)
	}
}

func TestHealthStatusBeforeFirstScan(t *testing.T) {
	ix := New(failingScanner{}, catalog.NewIndex(), nil, time.Second)

	status := ix.GetHealthStatus()
	if status.Ready {
		t.Error("Ready = true before any scan")
	}
	if status.Generation != 0 {
		t.Errorf("Generation = %d, want 0", status.Generation)
	}
	if status.RefreshInterval != "1s" {
		t.Errorf("RefreshInterval = %q", status.RefreshInterval)
	}
}
