package handlers

import (
	"net/http"
	"runtime"
	"time"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Ready             bool   `json:"ready"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	Indexing          bool   `json:"indexing"`
	LastIndexed       string `json:"lastIndexed,omitempty"`
	InitialIndexError string `json:"initialIndexError,omitempty"`
	LastError         string `json:"lastError,omitempty"`

	Generation uint64 `json:"generation"`
	Categories int    `json:"categories"`
	Images     int    `json:"images"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It answers 503
// until the first snapshot has been published.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Ready:        status.Ready,
		Version:      startup.Version,
		Uptime:       status.Uptime,
		Indexing:     status.Indexing,
		LastError:    status.LastError,
		Generation:   status.Generation,
		Categories:   status.Categories,
		Images:       status.Images,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if status.Ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if !status.LastIndexed.IsZero() {
		response.LastIndexed = status.LastIndexed.Format(time.RFC3339)
	}

	// A failed first scan leaves the service up with an empty catalog.
	if status.InitialIndexError != "" {
		response.InitialIndexError = status.InitialIndexError
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if !status.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only once a snapshot has been published.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatus(w, http.StatusOK, "ready", "")
	} else {
		writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready", "")
	}
}

// GetVersion reports the build information stamped at link time.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	cachepolicy.SetNoStore(w)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, startup.GetBuildInfo())
}
