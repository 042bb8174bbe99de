package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthPaths are the probe endpoints, which the access log can skip.
var HealthPaths = []string{"/health", "/healthz", "/livez", "/readyz"}

// RegisterRoutes adds every endpoint to router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	read := []string{http.MethodGet, http.MethodHead}

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	router.HandleFunc("/random", h.RandomImage).Methods(read...).Name("random")
	router.HandleFunc("/image", h.GetImage).Methods(read...).Name("image")

	// Registered on the root router: a mux subrouter answers a method
	// mismatch with 404 instead of 405.
	router.HandleFunc("/api/random", h.RandomJSON).Methods(read...)
	router.HandleFunc("/api/categories", h.ListCategories).Methods(read...)
	router.HandleFunc("/api/category", h.ListCategory).Methods(read...)
	router.HandleFunc("/api/images", h.ListImages).Methods(read...)
	router.HandleFunc("/api/thumbnail", h.GetThumbnail).Methods(read...)
	router.HandleFunc("/api/image-info", h.GetImageInfo).Methods(read...)
	router.HandleFunc("/api/stats", h.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/api/scans", h.GetScans).Methods(http.MethodGet)
	router.HandleFunc("/api/reindex", h.TriggerReindex).Methods(http.MethodPost)
	router.HandleFunc("/api/events", h.Events).Methods(http.MethodGet)

	router.HandleFunc("/health", h.HealthCheck).Methods(read...)
	router.HandleFunc("/healthz", h.HealthCheck).Methods(read...)
	router.HandleFunc("/livez", h.LivenessCheck).Methods(read...)
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods(read...)
	router.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
}

// MetricsMux serves /metrics for the separate metrics listener.
func MetricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
