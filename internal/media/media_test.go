package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadInfo(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		width  int
		height int
		format string
	}{
		{"png", writePNG(t, dir, "a.png", 40, 30), 40, 30, "png"},
		{"jpeg", writeJPEG(t, dir, "b.jpg", 16, 64), 16, 64, "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ReadInfo(tt.path)
			if err != nil {
				t.Fatalf("ReadInfo() error: %v", err)
			}
			if info.Width != tt.width || info.Height != tt.height {
				t.Errorf("dimensions = %dx%d, want %dx%d", info.Width, info.Height, tt.width, tt.height)
			}
			if info.Format != tt.format {
				t.Errorf("Format = %q, want %q", info.Format, tt.format)
			}
			if info.Size <= 0 {
				t.Errorf("Size = %d", info.Size)
			}
			if info.ModTime.IsZero() {
				t.Error("ModTime is zero")
			}
		})
	}
}

func TestReadInfoRejectsNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadInfo(path); err == nil {
		t.Error("ReadInfo() succeeded on a non-image")
	}
}

func TestReadInfoMissingFile(t *testing.T) {
	_, err := ReadInfo(filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestConstrainedSize(t *testing.T) {
	tests := []struct {
		name            string
		w, h            int
		maxDim, maxPix  int
		wantW, wantH    int
		wantConstrained bool
	}{
		{"within limits", 800, 600, 4096, 20_000_000, 800, 600, false},
		{"wide", 8192, 4096, 4096, 20_000_000, 4096, 2048, true},
		{"tall", 1000, 8000, 4000, 20_000_000, 500, 4000, true},
		{"pixel budget", 1000, 1000, 4096, 250_000, 500, 500, true},
		{"degenerate", 0, 10, 4096, 100, 0, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := constrainedSize(tt.w, tt.h, tt.maxDim, tt.maxPix)
			if w != tt.wantW || h != tt.wantH || ok != tt.wantConstrained {
				t.Errorf("constrainedSize(%d, %d) = %d, %d, %v; want %d, %d, %v",
					tt.w, tt.h, w, h, ok, tt.wantW, tt.wantH, tt.wantConstrained)
			}
		})
	}
}

func TestThumbnailFitsWidth(t *testing.T) {
	path := writePNG(t, t.TempDir(), "wide.png", 400, 100)
	th := NewThumbnailer(2)

	data, err := th.Thumbnail(context.Background(), path, 100)
	if err != nil {
		t.Fatalf("Thumbnail() error: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumbnail does not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if cfg.Width != 100 || cfg.Height != 25 {
		t.Errorf("thumbnail = %dx%d, want 100x25", cfg.Width, cfg.Height)
	}
}

func TestThumbnailDefaultWidth(t *testing.T) {
	path := writeJPEG(t, t.TempDir(), "big.jpg", 600, 600)

	data, err := NewThumbnailer(1).Thumbnail(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Thumbnail() error: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != DefaultThumbnailWidth {
		t.Errorf("width = %d, want %d", cfg.Width, DefaultThumbnailWidth)
	}
}

func TestThumbnailInvalidWidth(t *testing.T) {
	th := NewThumbnailer(1)
	for _, w := range []int{-1, MaxThumbnailWidth + 1} {
		if _, err := th.Thumbnail(context.Background(), "unused", w); !errors.Is(err, ErrInvalidWidth) {
			t.Errorf("Thumbnail(width=%d) err = %v, want ErrInvalidWidth", w, err)
		}
	}
}

func TestThumbnailCancelledWhileWaiting(t *testing.T) {
	th := NewThumbnailer(1)
	th.sem <- struct{}{} // occupy the only slot
	defer func() { <-th.sem }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := th.Thumbnail(ctx, "unused", 100); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestThumbnailUndecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("\x89PNG garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewThumbnailer(1).Thumbnail(context.Background(), path, 100); err == nil {
		t.Error("Thumbnail() succeeded on a broken file")
	}
}

type fixedPressure bool

func (p fixedPressure) ShouldThrottle() bool { return bool(p) }

func TestThumbnailRefusedUnderPressure(t *testing.T) {
	path := writePNG(t, t.TempDir(), "a.png", 20, 20)
	th := NewThumbnailer(1)

	th.SetPressure(fixedPressure(true))
	if _, err := th.Thumbnail(context.Background(), path, 10); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}

	th.SetPressure(fixedPressure(false))
	if _, err := th.Thumbnail(context.Background(), path, 10); err != nil {
		t.Errorf("Thumbnail() error without pressure: %v", err)
	}
}
