package cachepolicy

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the max-age of listing and image responses.
const DefaultTTL = 7 * 24 * time.Hour

// NoStoreDirective is sent with every random draw.
const NoStoreDirective = "no-store, no-cache, must-revalidate, max-age=0"

// epoch distinguishes ETags across process restarts, since generations
// start again at 0.
var epoch = strings.SplitN(uuid.NewString(), "-", 2)[0]

// Epoch returns the process-unique prefix used in ETags.
func Epoch() string {
	return epoch
}

// CacheableDirective returns the Cache-Control value for long-lived responses.
func CacheableDirective(ttl time.Duration) string {
	return "public, max-age=" + strconv.FormatInt(int64(ttl/time.Second), 10)
}

// ETag returns a strong validator for generation. A non-empty variant
// separates different representations built from the same generation,
// such as thumbnail widths.
func ETag(generation uint64, variant string) string {
	if variant == "" {
		return fmt.Sprintf(`"%s-g%d"`, epoch, generation)
	}
	return fmt.Sprintf(`"%s-g%d-%s"`, epoch, generation, variant)
}

// SetCacheable marks a response as cacheable for ttl and tags it with etag.
func SetCacheable(w http.ResponseWriter, ttl time.Duration, etag string) {
	h := w.Header()
	h.Set("Cache-Control", CacheableDirective(ttl))
	if etag != "" {
		h.Set("ETag", etag)
	}
	h.Del("Pragma")
	h.Del("Expires")
}

// SetNoStore forbids caching the response anywhere.
func SetNoStore(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", NoStoreDirective)
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Del("ETag")
}

// NotModified reports whether the request's If-None-Match matches etag.
func NotModified(r *http.Request, etag string) bool {
	match := r.Header.Get("If-None-Match")
	if match == "" || etag == "" {
		return false
	}
	if strings.TrimSpace(match) == "*" {
		return true
	}
	for _, candidate := range strings.Split(match, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// Revalidate sets cacheable headers and, when the client already holds
// etag, answers 304 and returns true. The caller must not write a body
// in that case.
func Revalidate(w http.ResponseWriter, r *http.Request, ttl time.Duration, etag string) bool {
	SetCacheable(w, ttl, etag)
	if NotModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
