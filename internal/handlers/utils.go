package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/http"
	"strconv"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/catalog"
	"random-pictures/internal/filesystem"
	"random-pictures/internal/logging"
	"random-pictures/internal/media"
)

// errBadRequest marks query parameters that do not parse.
var errBadRequest = errors.New("bad request")

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status
// code. Error responses are never cached.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	cachepolicy.SetNoStore(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, statusCode int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := map[string]string{"status": status}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, body)
}

// writeEntry writes a cached payload, answering 304 when the client already
// holds its generation.
func (h *Handlers) writeEntry(w http.ResponseWriter, r *http.Request, entry *cachepolicy.Entry, variant string) {
	if cachepolicy.Revalidate(w, r, h.cacheTTL, cachepolicy.ETag(entry.Generation, variant)) {
		return
	}
	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Body)))
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(entry.Body); err != nil {
		logging.Debug("failed to write response for %s: %v", r.URL.Path, err)
	}
}

// writeError maps a domain error to its status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *catalog.NotFoundError

	switch {
	case errors.As(err, &notFound):
		writeJSONError(w, notFound.Error(), http.StatusNotFound)
	case errors.Is(err, filesystem.ErrInvalidPath):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errBadRequest), errors.Is(err, media.ErrInvalidWidth):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fs.ErrNotExist):
		writeJSONError(w, "image not found", http.StatusNotFound)
	case errors.Is(err, image.ErrFormat):
		writeJSONError(w, "unsupported image format", http.StatusUnsupportedMediaType)
	case errors.Is(err, media.ErrBusy):
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logging.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return n, nil
}
