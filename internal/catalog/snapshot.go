package catalog

import (
	"path"
	"sort"
	"time"
)

// ImageEntry is one image file inside a category directory.
type ImageEntry struct {
	// Name is the path relative to the category directory.
	Name    string    `json:"name"`
	Size    int64     `json:"size,omitempty"`
	ModTime time.Time `json:"modTime,omitempty"`
}

// Category is a directory directly under the root and the images it holds,
// sorted by Name.
type Category struct {
	Name   string
	Images []ImageEntry
}

// Count returns the number of images in the category.
func (c *Category) Count() int {
	return len(c.Images)
}

// ImagePath returns the root-relative, slash-separated path of image i.
func (c *Category) ImagePath(i int) string {
	return path.Join(c.Name, c.Images[i].Name)
}

// Snapshot is an immutable view of the catalog at one point in time.
// Nothing reachable from a Snapshot may be modified once it has been built;
// the accessors hand out shared slices on that basis.
type Snapshot struct {
	generation uint64
	createdAt  time.Time

	categories []*Category
	byName     map[string]*Category

	// cumulative[i] is the number of images in categories[0..i].
	cumulative  []int
	totalImages int
}

// NewSnapshot builds a snapshot from scanned categories. Categories are
// ordered by name and each category's images by Name. The generation is
// assigned when the snapshot is published.
func NewSnapshot(categories []Category, createdAt time.Time) *Snapshot {
	s := &Snapshot{
		createdAt:  createdAt,
		categories: make([]*Category, 0, len(categories)),
		byName:     make(map[string]*Category, len(categories)),
		cumulative: make([]int, 0, len(categories)),
	}

	for i := range categories {
		c := categories[i]
		if _, dup := s.byName[c.Name]; dup {
			continue
		}
		images := make([]ImageEntry, len(c.Images))
		copy(images, c.Images)
		sort.Slice(images, func(a, b int) bool { return images[a].Name < images[b].Name })

		cat := &Category{Name: c.Name, Images: images}
		s.categories = append(s.categories, cat)
		s.byName[cat.Name] = cat
	}

	sort.Slice(s.categories, func(a, b int) bool {
		return s.categories[a].Name < s.categories[b].Name
	})

	for _, cat := range s.categories {
		s.totalImages += cat.Count()
		s.cumulative = append(s.cumulative, s.totalImages)
	}

	return s
}

// EmptySnapshot returns a snapshot with no categories.
func EmptySnapshot() *Snapshot {
	return NewSnapshot(nil, time.Now())
}

// Generation returns the generation number assigned at publish time.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// CreatedAt returns when the scan that produced the snapshot finished.
func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Categories returns every category ordered by name. The slice is shared
// and must not be modified.
func (s *Snapshot) Categories() []*Category {
	return s.categories
}

// Category looks up a category by its exact (case-sensitive) name.
func (s *Snapshot) Category(name string) (*Category, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// CategoryCount returns the number of categories, empty ones included.
func (s *Snapshot) CategoryCount() int {
	return len(s.categories)
}

// TotalImages returns the number of images across all categories.
func (s *Snapshot) TotalImages() int {
	return s.totalImages
}

// Locate maps a global image offset in [0, TotalImages()) to the category
// holding it and the index within that category. The search is a binary
// search over per-category cumulative counts, so its cost depends on the
// number of categories only.
func (s *Snapshot) Locate(offset int) (*Category, int, bool) {
	ci, i, ok := s.LocatePosition(offset)
	if !ok {
		return nil, 0, false
	}
	return s.categories[ci], i, true
}

// LocatePosition is Locate returning the category's position in
// Categories() instead of the category itself.
func (s *Snapshot) LocatePosition(offset int) (categoryIndex, imageIndex int, ok bool) {
	if offset < 0 || offset >= s.totalImages {
		return 0, 0, false
	}

	ci := sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > offset
	})

	start := 0
	if ci > 0 {
		start = s.cumulative[ci-1]
	}
	return ci, offset - start, true
}

// withGeneration returns a copy of s carrying generation gen. The copy
// shares the immutable category data with s.
func (s *Snapshot) withGeneration(gen uint64) *Snapshot {
	stamped := *s
	stamped.generation = gen
	return &stamped
}
