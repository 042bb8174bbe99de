// Package random draws images from the current catalog snapshot.
//
// A global draw weights each category by its image count and then picks
// uniformly inside it, which makes every image equally likely without ever
// flattening the catalog into one list.
package random

import (
	"math/rand/v2"
	"sync"
	"time"

	"random-pictures/internal/catalog"
)

// Pick is one drawn image.
type Pick struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Generation uint64 `json:"generation"`
}

// Source returns the snapshot to draw from.
type Source interface {
	Current() *catalog.Snapshot
}

// Selector picks random images. It is safe for concurrent use.
type Selector struct {
	source Source

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Selector seeded from the clock.
func New(source Source) *Selector {
	seed := uint64(time.Now().UnixNano())
	return NewWithSeed(source, seed, seed^0x9e3779b97f4a7c15)
}

// NewWithSeed creates a Selector with a fixed PCG seed, for reproducible draws.
func NewWithSeed(source Source, seed1, seed2 uint64) *Selector {
	return &Selector{
		source: source,
		rng:    rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Pick draws an image. An empty category draws across the whole catalog.
// It returns a *catalog.NotFoundError when the category is unknown or has no
// images, or when the catalog is empty.
func (s *Selector) Pick(category string) (Pick, error) {
	snap := s.source.Current()

	if category == "" {
		return s.pickGlobal(snap)
	}

	c, ok := snap.Category(category)
	if !ok {
		return Pick{}, &catalog.NotFoundError{Category: category}
	}
	if c.Count() == 0 {
		return Pick{}, &catalog.NotFoundError{Category: category, Empty: true}
	}

	return newPick(snap, c, s.intN(c.Count())), nil
}

func (s *Selector) pickGlobal(snap *catalog.Snapshot) (Pick, error) {
	total := snap.TotalImages()
	if total == 0 {
		return Pick{}, &catalog.NotFoundError{}
	}

	c, i, ok := snap.Locate(s.intN(total))
	if !ok {
		return Pick{}, &catalog.NotFoundError{}
	}
	return newPick(snap, c, i), nil
}

func (s *Selector) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func newPick(snap *catalog.Snapshot, c *catalog.Category, i int) Pick {
	return Pick{
		Category:   c.Name,
		Name:       c.Images[i].Name,
		Path:       c.ImagePath(i),
		Generation: snap.Generation(),
	}
}
