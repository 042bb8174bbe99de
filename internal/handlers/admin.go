package handlers

import (
	"fmt"
	"net/http"
	"time"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/indexer"
)

const (
	defaultScanLimit = 50
	maxScanLimit     = 1000
)

// CacheStats summarizes the response cache.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// StatsResponse describes the current catalog and the scheduler.
type StatsResponse struct {
	Generation    uint64               `json:"generation"`
	Categories    int                  `json:"categories"`
	Images        int                  `json:"images"`
	SnapshotTaken time.Time            `json:"snapshotTaken"`
	HomePageSize  int                  `json:"homePageSize"`
	CategoryPage  int                  `json:"categoryPageSize"`
	Indexer       indexer.HealthStatus `json:"indexer"`
	ResponseCache *CacheStats          `json:"responseCache,omitempty"`
	CacheEpoch    string               `json:"cacheEpoch"`
}

// GetStats reports the published snapshot, page sizes, scheduler health and
// response cache counters. It is never cached.
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	snap := h.gallery.Snapshot()
	cfg := h.gallery.Config()

	response := StatsResponse{
		Generation:    snap.Generation(),
		Categories:    snap.CategoryCount(),
		Images:        snap.TotalImages(),
		SnapshotTaken: snap.CreatedAt(),
		HomePageSize:  cfg.HomePageSize,
		CategoryPage:  cfg.CategoryPageSize,
		Indexer:       h.indexer.GetHealthStatus(),
		CacheEpoch:    cachepolicy.Epoch(),
	}
	if cache := h.gallery.Cache(); cache != nil {
		hits, misses := cache.Stats()
		response.ResponseCache = &CacheStats{Entries: cache.Len(), Hits: hits, Misses: misses}
	}

	cachepolicy.SetNoStore(w)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// GetScans returns the most recent scans from the history store, newest
// first. ?limit= defaults to 50.
func (h *Handlers) GetScans(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "scan history is disabled", http.StatusNotFound)
		return
	}

	limit, err := queryInt(r, "limit", defaultScanLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit < 1 || limit > maxScanLimit {
		writeError(w, r, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, maxScanLimit))
		return
	}

	records, err := h.history.RecentScans(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cachepolicy.SetNoStore(w)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, records)
}

// TriggerReindex requests an immediate rescan. It goes through the same
// drop-on-overlap gate as the periodic refresh.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	cachepolicy.SetNoStore(w)

	if h.indexer.IsIndexing() {
		writeJSONStatus(w, http.StatusOK, "already_running", "A scan is already in progress")
		return
	}

	h.indexer.TriggerIndex(indexer.TriggerManual)
	writeJSONStatus(w, http.StatusAccepted, "started", "Rescan started")
}

// Events upgrades the request to the publish event stream.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSONError(w, "event stream is disabled", http.StatusNotFound)
		return
	}
	h.events.ServeHTTP(w, r)
}
