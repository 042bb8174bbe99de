package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/disintegration/imaging"

	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"
	"random-pictures/internal/workers"
)

// Thumbnail widths in pixels.
const (
	DefaultThumbnailWidth = 200
	MaxThumbnailWidth     = 1024
)

const thumbnailQuality = 80

// ErrInvalidWidth is returned for a requested width outside 1..MaxThumbnailWidth.
var ErrInvalidWidth = errors.New("invalid thumbnail width")

// ErrBusy is returned while memory pressure forbids rendering.
var ErrBusy = errors.New("thumbnail rendering paused: memory pressure")

// Pressure reports whether memory-hungry work should be refused.
type Pressure interface {
	ShouldThrottle() bool
}

// Thumbnailer renders JPEG thumbnails. Rendering is CPU-bound, so the number
// of concurrent renders is capped at the configured worker count. Results are
// not stored here; callers keep them in the response cache.
type Thumbnailer struct {
	sem      chan struct{}
	pressure Pressure
}

// NewThumbnailer creates a Thumbnailer allowing concurrency renders at once.
// A non-positive concurrency sizes the pool from the CPU count.
func NewThumbnailer(concurrency int) *Thumbnailer {
	if concurrency <= 0 {
		concurrency = workers.ForCPU(4)
	}
	logging.Debug("Thumbnailer: %d concurrent renders", concurrency)
	return &Thumbnailer{sem: make(chan struct{}, concurrency)}
}

// SetPressure makes the Thumbnailer refuse renders while p reports
// pressure.
func (t *Thumbnailer) SetPressure(p Pressure) {
	t.pressure = p
}

// Thumbnail renders the image at path scaled to fit a width x width box and
// encodes it as JPEG. width 0 selects DefaultThumbnailWidth.
func (t *Thumbnailer) Thumbnail(ctx context.Context, path string, width int) ([]byte, error) {
	if width == 0 {
		width = DefaultThumbnailWidth
	}
	if width < 0 || width > MaxThumbnailWidth {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	if t.pressure != nil && t.pressure.ShouldThrottle() {
		metrics.ThumbnailsRejectedTotal.Inc()
		return nil, ErrBusy
	}

	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	start := time.Now()
	defer func() {
		metrics.ThumbnailGenerationDuration.Observe(time.Since(start).Seconds())
	}()

	img, err := LoadConstrained(path, MaxImageDimension, MaxImagePixels)
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_decode").Inc()
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}

	thumb := imaging.Fit(img, width, width, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues("error_encode").Inc()
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
	logging.Debug("Thumbnail rendered: %s (%d bytes, %v)", path, buf.Len(), time.Since(start))
	return buf.Bytes(), nil
}
