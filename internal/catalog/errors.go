package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	ErrScan     = errors.New("catalog scan failed")
	ErrNotFound = errors.New("not found")
)

// ScanError reports that the root directory could not be read. The cycle
// that produced it publishes nothing; the previous snapshot stays current.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrScan) match any ScanError.
func (e *ScanError) Is(target error) bool {
	return target == ErrScan
}

// NotFoundError reports a category that is absent from the current
// snapshot, or present but without images.
type NotFoundError struct {
	Category string
	Empty    bool
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Category == "":
		return "no images available"
	case e.Empty:
		return fmt.Sprintf("category %q has no images", e.Category)
	default:
		return fmt.Sprintf("category %q not found", e.Category)
	}
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
