// Package gallery answers catalog queries: category and image listings,
// the flat all-images listing and random draws. Every query reads one
// snapshot, so a listing never mixes two generations.
package gallery

import (
	"encoding/json"
	"fmt"
	"time"

	"random-pictures/internal/cachepolicy"
	"random-pictures/internal/catalog"
	"random-pictures/internal/pagination"
	"random-pictures/internal/random"
)

// Config holds page sizes for the listings.
type Config struct {
	// HomePageSize is the page size of the category listing and the flat
	// all-images listing.
	HomePageSize int
	// CategoryPageSize is the page size of a single category's images.
	CategoryPageSize int
}

// DefaultConfig returns the default page sizes.
func DefaultConfig() Config {
	return Config{HomePageSize: 6, CategoryPageSize: 6}
}

// Listing is a page of items tagged with the generation it was read from.
type Listing[T any] struct {
	pagination.Result[T]
	Generation uint64 `json:"currentGeneration"`
}

// CategorySummary describes one category in the category listing.
type CategorySummary struct {
	Name       string `json:"name"`
	ImageCount int    `json:"imageCount"`
	// Cover is the first image of the category, empty if it has none.
	Cover string `json:"cover,omitempty"`
}

// ImageItem describes one image in an image listing.
type ImageItem struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Path     string    `json:"path"`
	Size     int64     `json:"size,omitempty"`
	ModTime  time.Time `json:"modTime,omitempty"`
}

// Service serves queries against a catalog index.
type Service struct {
	index    *catalog.Index
	selector *random.Selector
	cache    *cachepolicy.ResponseCache
	config   Config
}

// New creates a Service. cache may be nil to disable response caching.
func New(index *catalog.Index, selector *random.Selector, cache *cachepolicy.ResponseCache, config Config) *Service {
	if config.HomePageSize <= 0 || config.CategoryPageSize <= 0 {
		panic(fmt.Sprintf("gallery: page sizes must be positive, got %d and %d",
			config.HomePageSize, config.CategoryPageSize))
	}
	return &Service{
		index:    index,
		selector: selector,
		cache:    cache,
		config:   config,
	}
}

// Snapshot returns the current snapshot. Handlers read it once per request
// and pass it to the listing methods.
func (s *Service) Snapshot() *catalog.Snapshot {
	return s.index.Current()
}

// Config returns the listing configuration.
func (s *Service) Config() Config {
	return s.config
}

// Pick draws a random image; see random.Selector.Pick.
func (s *Service) Pick(category string) (random.Pick, error) {
	return s.selector.Pick(category)
}

// ListCategories returns page of the category listing.
func (s *Service) ListCategories(snap *catalog.Snapshot, page int) Listing[CategorySummary] {
	result := pagination.Map(
		pagination.Page(snap.Categories(), s.config.HomePageSize, page),
		summarize,
	)
	return Listing[CategorySummary]{Result: result, Generation: snap.Generation()}
}

// ListImages returns page of one category's images.
func (s *Service) ListImages(snap *catalog.Snapshot, category string, page int) (Listing[ImageItem], error) {
	c, ok := snap.Category(category)
	if !ok {
		return Listing[ImageItem]{}, &catalog.NotFoundError{Category: category}
	}
	return imagesOf(snap, c, s.config.CategoryPageSize, page), nil
}

// ListAllImages returns page of every image across categories, in category
// then name order. A non-empty category restricts it to that category. Only
// the entries inside the requested window are materialized.
func (s *Service) ListAllImages(snap *catalog.Snapshot, category string, page int) (Listing[ImageItem], error) {
	size := s.config.HomePageSize
	if category != "" {
		c, ok := snap.Category(category)
		if !ok {
			return Listing[ImageItem]{}, &catalog.NotFoundError{Category: category}
		}
		return imagesOf(snap, c, size, page), nil
	}

	total := snap.TotalImages()
	start, end := pagination.Bounds(total, size, page)

	items := make([]ImageItem, 0, end-start)
	if start < end {
		ci, i, _ := snap.LocatePosition(start)
		cats := snap.Categories()
		for len(items) < end-start {
			if i >= cats[ci].Count() {
				ci++
				i = 0
				continue
			}
			items = append(items, itemOf(cats[ci], i))
			i++
		}
	}

	return Listing[ImageItem]{
		Result: pagination.Result[ImageItem]{
			Items:       items,
			TotalItems:  total,
			TotalPages:  pagination.TotalPages(total, size),
			CurrentPage: page,
			PageSize:    size,
		},
		Generation: snap.Generation(),
	}, nil
}

// CachedJSON returns the JSON rendering of build's result for key, built at
// most once per generation of snap. kind labels the lookup for metrics.
func (s *Service) CachedJSON(kind, key string, snap *catalog.Snapshot, build func() (any, error)) (*cachepolicy.Entry, bool, error) {
	render := func() ([]byte, string, error) {
		v, err := build()
		if err != nil {
			return nil, "", err
		}
		body, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", kind, err)
		}
		return body, "application/json", nil
	}

	if s.cache == nil {
		body, contentType, err := render()
		if err != nil {
			return nil, false, err
		}
		return &cachepolicy.Entry{Body: body, ContentType: contentType, Generation: snap.Generation()}, false, nil
	}
	return s.cache.GetOrBuild(kind, key, snap.Generation(), render)
}

// Cache returns the response cache, or nil when caching is disabled.
func (s *Service) Cache() *cachepolicy.ResponseCache {
	return s.cache
}

func imagesOf(snap *catalog.Snapshot, c *catalog.Category, size, page int) Listing[ImageItem] {
	indices := pagination.Page(c.Images, size, page)
	start, _ := pagination.Bounds(c.Count(), size, page)

	items := make([]ImageItem, len(indices.Items))
	for i := range indices.Items {
		items[i] = itemOf(c, start+i)
	}

	return Listing[ImageItem]{
		Result: pagination.Result[ImageItem]{
			Items:       items,
			TotalItems:  indices.TotalItems,
			TotalPages:  indices.TotalPages,
			CurrentPage: indices.CurrentPage,
			PageSize:    indices.PageSize,
		},
		Generation: snap.Generation(),
	}
}

func summarize(c *catalog.Category) CategorySummary {
	summary := CategorySummary{Name: c.Name, ImageCount: c.Count()}
	if c.Count() > 0 {
		summary.Cover = c.ImagePath(0)
	}
	return summary
}

func itemOf(c *catalog.Category, i int) ImageItem {
	img := c.Images[i]
	return ImageItem{
		Name:     img.Name,
		Category: c.Name,
		Path:     c.ImagePath(i),
		Size:     img.Size,
		ModTime:  img.ModTime,
	}
}
