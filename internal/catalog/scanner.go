package catalog

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"random-pictures/internal/filesystem"
	"random-pictures/internal/logging"
	"random-pictures/internal/mediatypes"
	"random-pictures/internal/workers"
)

// ScannerConfig holds the tunables of a Scanner.
type ScannerConfig struct {
	// Extensions is the allow-list of image extensions.
	Extensions mediatypes.ExtensionSet
	// Workers bounds how many category directories are read at once.
	Workers int
	// IncludeHidden keeps entries whose name starts with a dot.
	IncludeHidden bool
	// Retry controls ESTALE handling for directory reads.
	Retry filesystem.RetryConfig
}

// DefaultScannerConfig returns the default scanner settings.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Extensions: mediatypes.NewExtensionSet(mediatypes.DefaultImageExtensions),
		Workers:    workers.ForIO(16),
		Retry:      filesystem.DefaultRetryConfig(),
	}
}

// Scanner walks the root directory and builds snapshots. It never touches
// the Index; the caller publishes what it returns.
type Scanner struct {
	root   string
	config ScannerConfig
}

// NewScanner creates a Scanner for root.
func NewScanner(root string, config ScannerConfig) *Scanner {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.Extensions.Len() == 0 {
		config.Extensions = mediatypes.NewExtensionSet(mediatypes.DefaultImageExtensions)
	}
	return &Scanner{root: root, config: config}
}

// Root returns the directory being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// Scan reads every category directory directly under the root and returns a
// new, unpublished Snapshot. Only a failure to read the root itself is an
// error; unreadable categories are kept with zero images.
func (s *Scanner) Scan(ctx context.Context) (*Snapshot, error) {
	entries, err := filesystem.ReadDirWithRetry(s.root, s.config.Retry)
	if err != nil {
		return nil, &ScanError{Root: s.root, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		// DirEntry.IsDir is false for symlinks, so linked directories are skipped.
		if !entry.IsDir() || s.skipName(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	categories := make([]Category, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			categories[i] = Category{Name: name, Images: s.scanCategory(name)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, &ScanError{Root: s.root, Err: err}
	}

	return NewSnapshot(categories, time.Now()), nil
}

func (s *Scanner) scanCategory(name string) []ImageEntry {
	dir := filepath.Join(s.root, name)

	entries, err := filesystem.ReadDirWithRetry(dir, s.config.Retry)
	if err != nil {
		logging.Warn("Failed to read category %s: %v", name, err)
		return nil
	}

	images := make([]ImageEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || s.skipName(entry.Name()) {
			continue
		}
		if !s.config.Extensions.Matches(entry.Name()) {
			continue
		}

		image := ImageEntry{Name: entry.Name()}
		if info, err := entry.Info(); err == nil {
			image.Size = info.Size()
			image.ModTime = info.ModTime()
		} else if errors.Is(err, fs.ErrNotExist) {
			// Removed between ReadDir and Info.
			continue
		}
		images = append(images, image)
	}

	sort.Slice(images, func(a, b int) bool { return images[a].Name < images[b].Name })
	return images
}

func (s *Scanner) skipName(name string) bool {
	return !s.config.IncludeHidden && strings.HasPrefix(name, ".")
}
