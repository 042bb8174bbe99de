// Package pagination splits ordered lists into fixed-size, 1-indexed pages.
package pagination

import "fmt"

// Result is one page of items together with the totals needed to render
// navigation.
type Result[T any] struct {
	Items       []T `json:"items"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

// HasNext reports whether a page follows this one.
func (r Result[T]) HasNext() bool {
	return r.CurrentPage >= 1 && r.CurrentPage < r.TotalPages
}

// HasPrev reports whether a page precedes this one.
func (r Result[T]) HasPrev() bool {
	return r.CurrentPage > 1 && r.TotalPages > 0
}

// TotalPages returns ceil(total/size).
func TotalPages(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Bounds returns the half-open range [start, end) page number covers. An
// out-of-range page yields an empty range.
func Bounds(total, size, number int) (start, end int) {
	mustPositive(size)
	if number < 1 || number > TotalPages(total, size) {
		return 0, 0
	}
	start = (number - 1) * size
	end = min(start+size, total)
	return start, end
}

// Page returns page number of items. Pages past the end, or below 1, are
// empty but still report the correct totals. The returned Items share
// backing storage with items.
//
// size must be positive; configuration validation rejects anything else
// before a request can reach here.
func Page[T any](items []T, size, number int) Result[T] {
	start, end := Bounds(len(items), size, number)
	page := items[start:end:end]
	if page == nil {
		page = []T{}
	}
	return Result[T]{
		Items:       page,
		TotalItems:  len(items),
		TotalPages:  TotalPages(len(items), size),
		CurrentPage: number,
		PageSize:    size,
	}
}

// Map converts the items of a page while keeping its totals.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, len(r.Items))
	for i, item := range r.Items {
		out[i] = fn(item)
	}
	return Result[U]{
		Items:       out,
		TotalItems:  r.TotalItems,
		TotalPages:  r.TotalPages,
		CurrentPage: r.CurrentPage,
		PageSize:    r.PageSize,
	}
}

func mustPositive(size int) {
	if size <= 0 {
		panic(fmt.Sprintf("pagination: page size must be positive, got %d", size))
	}
}
