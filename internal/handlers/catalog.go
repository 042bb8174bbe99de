package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/catalog"
	"random-pictures/internal/metrics"
	"random-pictures/internal/random"
)

// RandomResponse is the JSON form of a random pick.
type RandomResponse struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Path       string `json:"path"`
	URL        string `json:"url"`
	Generation uint64 `json:"generation"`
}

// imageURL is where the bytes of a root-relative image path are served.
func imageURL(rel string) string {
	return "/image?path=" + url.QueryEscape(rel)
}

func (h *Handlers) pick(category string) (random.Pick, error) {
	scope := "global"
	if category != "" {
		scope = "category"
	}

	p, err := h.gallery.Pick(category)
	switch {
	case err == nil:
		metrics.RandomPicksTotal.WithLabelValues(scope, "success").Inc()
	case errors.Is(err, catalog.ErrNotFound):
		metrics.RandomPicksTotal.WithLabelValues(scope, "not_found").Inc()
	default:
		metrics.RandomPicksTotal.WithLabelValues(scope, "error").Inc()
	}
	return p, err
}

// RandomImage serves the bytes of a random image, optionally restricted to
// the category named by ?type=. The response is never cacheable.
func (h *Handlers) RandomImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.pick(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Picks name files exactly as the scanner found them on disk.
	full := filepath.Join(h.validator.Root(), filepath.FromSlash(p.Path))

	cachepolicy.SetNoStore(w)
	h.serveFile(w, r, full, false)
}

// RandomJSON describes a random pick without sending the image.
func (h *Handlers) RandomJSON(w http.ResponseWriter, r *http.Request) {
	p, err := h.pick(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	cachepolicy.SetNoStore(w)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, RandomResponse{
		Name:       p.Name,
		Category:   p.Category,
		Path:       p.Path,
		URL:        imageURL(p.Path),
		Generation: p.Generation,
	})
}

// ListCategories returns a page of categories.
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap := h.gallery.Snapshot()
	key := fmt.Sprintf("categories?page=%d", page)
	entry, _, err := h.gallery.CachedJSON("categories", key, snap, func() (any, error) {
		return h.gallery.ListCategories(snap, page), nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, entry, "")
}

// ListCategory returns a page of one category's images.
func (h *Handlers) ListCategory(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap := h.gallery.Snapshot()
	key := fmt.Sprintf("category?name=%s&page=%d", url.QueryEscape(name), page)
	entry, _, err := h.gallery.CachedJSON("category", key, snap, func() (any, error) {
		return h.gallery.ListImages(snap, name, page)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, entry, "")
}

// ListImages returns a page of the flat image listing, optionally limited
// to ?category=.
func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap := h.gallery.Snapshot()
	key := fmt.Sprintf("images?category=%s&page=%d", url.QueryEscape(category), page)
	entry, _, err := h.gallery.CachedJSON("images", key, snap, func() (any, error) {
		return h.gallery.ListAllImages(snap, category, page)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, entry, "")
}
