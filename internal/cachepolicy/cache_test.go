package cachepolicy

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(capacity int, ttl time.Duration) (*ResponseCache, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewResponseCache(capacity, ttl)
	c.now = clock.now
	return c, clock
}

func staticBuild(body string, calls *atomic.Int32) BuildFunc {
	return func() ([]byte, string, error) {
		calls.Add(1)
		return []byte(body), "application/json", nil
	}
}

func TestGetOrBuild_HitWithinGeneration(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	var calls atomic.Int32

	e, hit, err := c.GetOrBuild("categories", "categories:1", 3, staticBuild("a", &calls))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "a", string(e.Body))

	e, hit, err = c.GetOrBuild("categories", "categories:1", 3, staticBuild("b", &calls))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a", string(e.Body))
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGet_OlderGenerationIsMiss(t *testing.T) {
	c, _ := newTestCache(10, 24*time.Hour)
	c.Set("category:cats:1", 1, []byte("old"), "application/json")

	_, ok := c.Get("category:cats:1", 2)
	assert.False(t, ok, "an entry from generation 1 must not serve generation 2, whatever its TTL")
	assert.Zero(t, c.Len(), "stale entry is dropped on lookup")
}

func TestGet_ExpiredIsMiss(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("k", 1, []byte("v"), "text/plain")

	clock.t = clock.t.Add(59 * time.Second)
	_, ok := c.Get("k", 1)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Second)
	_, ok = c.Get("k", 1)
	assert.False(t, ok)
}

func TestSet_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)

	c.Set("a", 1, []byte("a"), "")
	c.Set("b", 1, []byte("b"), "")
	_, ok := c.Get("a", 1)
	require.True(t, ok)
	c.Set("c", 1, []byte("c"), "")

	_, ok = c.Get("b", 1)
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a", 1)
	assert.True(t, ok)
	_, ok = c.Get("c", 1)
	assert.True(t, ok)
}

func TestSet_KeepsNewerGeneration(t *testing.T) {
	c, _ := newTestCache(4, time.Hour)

	c.Set("k", 5, []byte("new"), "")
	c.Set("k", 4, []byte("late"), "")

	e, ok := c.Get("k", 5)
	require.True(t, ok)
	assert.Equal(t, "new", string(e.Body))
}

func TestPurge(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	c.Set("a", 1, nil, "")
	c.Set("b", 2, nil, "")
	c.Set("c", 2, nil, "")

	assert.Equal(t, 1, c.Purge(2))
	assert.Equal(t, 2, c.Len())
}

func TestGetOrBuild_CollapsesConcurrentBuilds(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	build := func() ([]byte, string, error) {
		calls.Add(1)
		<-release
		return []byte("x"), "", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, _, err := c.GetOrBuild("thumb", "thumb:cats/1.jpg:200", 1, build)
			if err != nil || string(e.Body) != "x" {
				t.Errorf("GetOrBuild = %v, %v", e, err)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOrBuild_ErrorNotCached(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	boom := errors.New("boom")

	_, _, err := c.GetOrBuild("k", "k", 1, func() ([]byte, string, error) { return nil, "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveCacheLookup(kind string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[fmt.Sprintf("%s/%v", kind, hit)]++
}

func TestGetOrBuild_ReportsToObserver(t *testing.T) {
	c, _ := newTestCache(10, time.Hour)
	obs := &countingObserver{counts: map[string]int{}}
	c.SetObserver(obs)

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		_, _, err := c.GetOrBuild("images", "images:1", 1, staticBuild("v", &calls))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, obs.counts["images/false"])
	assert.Equal(t, 2, obs.counts["images/true"])
}

func TestSetNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("ETag", `"x"`)

	SetNoStore(rec)

	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestSetCacheable(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCacheable(rec, DefaultTTL, ETag(7, ""))

	assert.Equal(t, "public, max-age=604800", rec.Header().Get("Cache-Control"))
	assert.Equal(t, ETag(7, ""), rec.Header().Get("ETag"))
}

func TestETag(t *testing.T) {
	a := ETag(1, "")
	b := ETag(2, "")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, `"`+Epoch()))
	assert.NotEqual(t, ETag(1, "w200"), ETag(1, "w400"))
}

func TestRevalidate(t *testing.T) {
	etag := ETag(3, "")

	tests := []struct {
		name        string
		ifNoneMatch string
		want        bool
	}{
		{"no header", "", false},
		{"match", etag, true},
		{"weak match", "W/" + etag, true},
		{"list", `"other", ` + etag, true},
		{"wildcard", "*", true},
		{"older generation", ETag(2, ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
			if tt.ifNoneMatch != "" {
				req.Header.Set("If-None-Match", tt.ifNoneMatch)
			}
			rec := httptest.NewRecorder()

			got := Revalidate(rec, req, time.Hour, etag)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.Equal(t, http.StatusNotModified, rec.Code)
			}
			assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
		})
	}
}
