package handlers

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/filesystem"
	"random-pictures/internal/logging"
	"random-pictures/internal/media"
	"random-pictures/internal/mediatypes"
)

// thumbnailTimeout bounds one render, independent of the request that
// started it, since concurrent requests for the same thumbnail share it.
const thumbnailTimeout = 30 * time.Second

// serveFile streams the image at full. With withModTime unset no
// Last-Modified header is sent, which keeps random responses opaque to
// conditional requests.
func (h *Handlers) serveFile(w http.ResponseWriter, r *http.Request, full string, withModTime bool) {
	file, err := filesystem.OpenWithRetry(full, h.retry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close %s: %v", full, err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if info.IsDir() {
		writeError(w, r, fs.ErrNotExist)
		return
	}

	var modTime time.Time
	if withModTime {
		modTime = info.ModTime()
	}
	w.Header().Set("Content-Type", mediatypes.GetMimeType(full))
	http.ServeContent(w, r, filepath.Base(full), modTime, file)
}

// resolve validates ?path= and checks that it names an existing file.
func (h *Handlers) resolve(r *http.Request) (string, error) {
	full, err := h.validator.Validate(r.URL.Query().Get("path"))
	if err != nil {
		return "", err
	}
	info, err := filesystem.StatWithRetry(full, h.retry)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fs.ErrNotExist
	}
	return full, nil
}

// GetImage serves an image by root-relative path with long-lived caching.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	// Resolve before revalidating so a deleted file is a 404, never a 304.
	full, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	etag := cachepolicy.ETag(h.gallery.Snapshot().Generation(), "")
	if cachepolicy.Revalidate(w, r, h.cacheTTL, etag) {
		return
	}
	h.serveFile(w, r, full, true)
}

// GetThumbnail serves a JPEG thumbnail fitted into a ?w= pixel square.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	width, err := queryInt(r, "w", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	full, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	build := func() ([]byte, string, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), thumbnailTimeout)
		defer cancel()
		body, err := h.thumbnailer.Thumbnail(ctx, full, width)
		return body, "image/jpeg", err
	}

	generation := h.gallery.Snapshot().Generation()
	var entry *cachepolicy.Entry
	if cache := h.gallery.Cache(); cache != nil {
		key := fmt.Sprintf("thumbnail?path=%s&w=%d", full, width)
		entry, _, err = cache.GetOrBuild("thumbnail", key, generation, build)
	} else {
		var body []byte
		var contentType string
		if body, contentType, err = build(); err == nil {
			entry = &cachepolicy.Entry{Body: body, ContentType: contentType, Generation: generation}
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, entry, fmt.Sprintf("w%d", width))
}

// GetImageInfo returns the dimensions, format and file metadata of an image.
func (h *Handlers) GetImageInfo(w http.ResponseWriter, r *http.Request) {
	full, err := h.resolve(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap := h.gallery.Snapshot()
	entry, _, err := h.gallery.CachedJSON("image_info", "image-info?path="+full, snap, func() (any, error) {
		return media.ReadInfo(full)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeEntry(w, r, entry, "info")
}
