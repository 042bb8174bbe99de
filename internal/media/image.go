package media

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Limits applied before an image is handed to the resizer. Larger sources
// are scaled down first so a single huge file cannot exhaust memory.
const (
	MaxImageDimension = 4096
	MaxImagePixels    = 20_000_000
)

// Info describes an image file without decoding its pixels.
type Info struct {
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Format  string    `json:"format"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// ReadInfo returns the dimensions, format and file metadata of an image.
func ReadInfo(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, err
	}

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		metrics.ImageDecodeByFormat.WithLabelValues("unknown").Inc()
		return Info{}, fmt.Errorf("decode config: %w", err)
	}
	metrics.ImageDecodeByFormat.WithLabelValues(format).Inc()

	return Info{
		Width:   config.Width,
		Height:  config.Height,
		Format:  format,
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
	}, nil
}

// constrainedSize scales width x height down to fit within maxDimension on
// either side and maxPixels in total, keeping the aspect ratio. ok is false
// when the image already fits.
func constrainedSize(width, height, maxDimension, maxPixels int) (w, h int, ok bool) {
	if width <= 0 || height <= 0 {
		return width, height, false
	}
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return width, height, false
	}

	w, h = width, height
	if w > maxDimension || h > maxDimension {
		if w > h {
			h = h * maxDimension / w
			w = maxDimension
		} else {
			w = w * maxDimension / h
			h = maxDimension
		}
	}

	if w*h > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(w*h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
	}

	return max(w, 1), max(h, 1), true
}

// LoadConstrained opens an image with EXIF orientation applied, scaling it
// down when it exceeds maxDimension or maxPixels.
func LoadConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	info, err := ReadInfo(path)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	w, h, ok := constrainedSize(info.Width, info.Height, maxDimension, maxPixels)
	if !ok {
		return img, nil
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, info.Width, info.Height, w, h)
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}
