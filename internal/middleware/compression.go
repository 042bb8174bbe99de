package middleware

import (
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, worth compressing.
	MinSize int
	// Level is the gzip level (gzip.BestSpeed to gzip.BestCompression).
	Level int
	// CompressibleTypes lists media types to compress. Image bytes are
	// already compressed and are left alone.
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses JSON and text bodies of 1KB or more.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"image/svg+xml",
		},
	}
}

// compressor owns a pool of gzip writers at one level.
type compressor struct {
	config CompressionConfig
	types  map[string]bool
	pool   sync.Pool
}

func newCompressor(config CompressionConfig) *compressor {
	c := &compressor{
		config: config,
		types:  make(map[string]bool, len(config.CompressibleTypes)),
	}
	for _, t := range config.CompressibleTypes {
		c.types[strings.ToLower(t)] = true
	}
	c.pool.New = func() any {
		w, err := gzip.NewWriterLevel(nil, config.Level)
		if err != nil {
			w = gzip.NewWriter(nil)
		}
		return w
	}
	return c
}

func (c *compressor) compressible(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return c.types[mediaType]
}

// gzipResponseWriter buffers up to MinSize bytes, then commits to either
// a gzip or a plain response.
type gzipResponseWriter struct {
	http.ResponseWriter
	c          *compressor
	gz         *gzip.Writer
	buffer     []byte
	statusCode int
	committed  bool
}

func newGzipResponseWriter(w http.ResponseWriter, c *compressor) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		c:              c,
		statusCode:     http.StatusOK,
		buffer:         make([]byte, 0, c.config.MinSize+1),
	}
}

// WriteHeader defers the status until the encoding is decided. Bodiless
// statuses are written straight through.
func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if g.committed {
		return
	}
	g.statusCode = statusCode
	if statusCode == http.StatusNotModified || statusCode == http.StatusNoContent {
		g.commit(false)
	}
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.committed {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.c.config.MinSize {
		if err := g.flushBuffer(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

// flushBuffer decides the encoding from what has been buffered so far and
// writes it out.
func (g *gzipResponseWriter) flushBuffer() error {
	compress := len(g.buffer) >= g.c.config.MinSize &&
		g.Header().Get("Content-Encoding") == "" &&
		g.c.compressible(g.Header().Get("Content-Type"))
	g.commit(compress)

	buf := g.buffer
	g.buffer = nil
	if len(buf) == 0 {
		return nil
	}
	var err error
	if g.gz != nil {
		_, err = g.gz.Write(buf)
	} else {
		_, err = g.ResponseWriter.Write(buf)
	}
	return err
}

func (g *gzipResponseWriter) commit(compress bool) {
	if g.committed {
		return
	}
	g.committed = true

	h := g.Header()
	h.Add("Vary", "Accept-Encoding")
	if compress {
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		if etag := h.Get("ETag"); etag != "" && !strings.HasPrefix(etag, "W/") {
			// The compressed body is a different representation.
			h.Set("ETag", "W/"+etag)
		}
		g.gz = g.c.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
	}
	g.ResponseWriter.WriteHeader(g.statusCode)
}

// Close writes any buffered data and returns the gzip writer to the pool.
func (g *gzipResponseWriter) Close() error {
	if !g.committed {
		if err := g.flushBuffer(); err != nil {
			return err
		}
	}
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	g.c.pool.Put(g.gz)
	g.gz = nil
	return err
}

func (g *gzipResponseWriter) Flush() {
	if !g.committed {
		_ = g.flushBuffer()
	}
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	if flusher, ok := g.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Compression returns a middleware that gzips compressible responses for
// clients that accept it.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	c := newCompressor(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !acceptsGzip(r) || r.Header.Get("Upgrade") != "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, c)
			defer gzw.Close()

			next.ServeHTTP(gzw, r)
		})
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}
