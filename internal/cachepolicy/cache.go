package cachepolicy

import (
	"container/list"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached response payload.
type Entry struct {
	Body        []byte
	ContentType string
	Generation  uint64
	Expires     time.Time
}

func (e *Entry) validFor(generation uint64, now time.Time) bool {
	return e.Generation == generation && now.Before(e.Expires)
}

// BuildFunc produces a payload for a cache miss.
type BuildFunc func() (body []byte, contentType string, err error)

// Observer receives cache lookup outcomes. kind groups keys for labeling.
type Observer interface {
	ObserveCacheLookup(kind string, hit bool)
}

// ResponseCache is an LRU of rendered responses keyed by response identity.
// An entry is served only while its generation equals the caller's current
// generation and it has not expired; anything else is a miss.
type ResponseCache struct {
	mu        sync.Mutex
	capacity  int
	ttl       time.Duration
	items     map[string]*list.Element
	evictList *list.List

	group    singleflight.Group
	observer Observer
	now      func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheItem struct {
	key   string
	entry *Entry
}

// NewResponseCache creates a cache holding at most capacity entries, each
// living at most ttl.
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ResponseCache{
		capacity:  capacity,
		ttl:       ttl,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		now:       time.Now,
	}
}

// SetObserver installs o to receive lookup outcomes.
func (c *ResponseCache) SetObserver(o Observer) {
	c.observer = o
}

// Get returns the entry for key if it was built from generation and has
// not expired. Stale entries are dropped.
func (c *ResponseCache) Get(key string, generation uint64) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := el.Value.(*cacheItem)
	if !item.entry.validFor(generation, c.now()) {
		c.removeElement(el)
		return nil, false
	}
	c.evictList.MoveToFront(el)
	return item.entry, true
}

// Set stores a payload built from generation.
func (c *ResponseCache) Set(key string, generation uint64, body []byte, contentType string) *Entry {
	entry := &Entry{
		Body:        body,
		ContentType: contentType,
		Generation:  generation,
		Expires:     c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		existing := el.Value.(*cacheItem)
		// Never let a slow builder overwrite a newer generation.
		if existing.entry.Generation > generation {
			return entry
		}
		existing.entry = entry
		c.evictList.MoveToFront(el)
		return entry
	}

	c.items[key] = c.evictList.PushFront(&cacheItem{key: key, entry: entry})
	for c.evictList.Len() > c.capacity {
		c.removeElement(c.evictList.Back())
	}
	return entry
}

// GetOrBuild returns a valid cached entry or runs build to create one.
// Concurrent misses for the same key and generation share one build. The
// boolean reports whether the result came from the cache.
func (c *ResponseCache) GetOrBuild(kind, key string, generation uint64, build BuildFunc) (*Entry, bool, error) {
	if entry, ok := c.Get(key, generation); ok {
		c.record(kind, true)
		return entry, true, nil
	}
	c.record(kind, false)

	flightKey := key + "\x00" + strconv.FormatUint(generation, 10)
	v, err, _ := c.group.Do(flightKey, func() (interface{}, error) {
		if entry, ok := c.Get(key, generation); ok {
			return entry, nil
		}
		body, contentType, err := build()
		if err != nil {
			return nil, err
		}
		return c.Set(key, generation, body, contentType), nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*Entry), false, nil
}

// Purge drops every entry not built from generation. It is registered as a
// publish hook so stale payloads release memory promptly.
func (c *ResponseCache) Purge(generation uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []*list.Element
	for _, el := range c.items {
		if el.Value.(*cacheItem).entry.Generation != generation {
			stale = append(stale, el)
		}
	}
	for _, el := range stale {
		c.removeElement(el)
	}
	return len(stale)
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Stats returns lifetime hit and miss counts.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResponseCache) record(kind string, hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observer != nil {
		c.observer.ObserveCacheLookup(kind, hit)
	}
}

func (c *ResponseCache) removeElement(el *list.Element) {
	c.evictList.Remove(el)
	delete(c.items, el.Value.(*cacheItem).key)
}
