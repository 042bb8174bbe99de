package middleware

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// W3CFields is the #Fields directive for the access log lines.
const W3CFields = "#Fields: date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken sc(Content-Encoding) sc(Cache-Control) cs(User-Agent) cs(Referer)"

// responseWriter records the status code and body size of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the event stream upgrade to a websocket through the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return h.Hijack()
}

// LoggingConfig controls which requests reach the access log.
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
	// Output receives log lines; nil means the standard logger.
	Output *log.Logger
}

// DefaultLoggingConfig logs every request, health checks included.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{"/metrics"},
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// accessLogEntry holds the sanitized fields of one access log line.
type accessLogEntry struct {
	at              time.Time
	clientIP        string
	method          string
	uriStem         string
	uriQuery        string
	status          int
	bytes           int64
	elapsed         time.Duration
	contentEncoding string
	cacheControl    string
	userAgent       string
	referer         string
}

func newAccessLogEntry(r *http.Request, rw *responseWriter, elapsed time.Duration) accessLogEntry {
	return accessLogEntry{
		at:              time.Now().UTC(),
		clientIP:        sanitizeLogField(getClientIP(r)),
		method:          sanitizeLogField(r.Method),
		uriStem:         sanitizeLogField(r.URL.Path),
		uriQuery:        orDash(sanitizeLogField(r.URL.RawQuery)),
		status:          rw.statusCode,
		bytes:           rw.bytesWritten,
		elapsed:         elapsed,
		contentEncoding: orDash(rw.Header().Get("Content-Encoding")),
		cacheControl:    orDash(escapeW3CField(rw.Header().Get("Cache-Control"))),
		userAgent:       orDash(escapeW3CField(sanitizeLogField(r.Header.Get("User-Agent")))),
		referer:         orDash(sanitizeLogField(r.Header.Get("Referer"))),
	}
}

// String renders the entry in W3C Extended Log Format, matching W3CFields.
func (e accessLogEntry) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s %d %d %d %s %s %s %s",
		e.at.Format("2006-01-02"),
		e.at.Format("15:04:05"),
		e.clientIP,
		e.method,
		e.uriStem,
		e.uriQuery,
		e.status,
		e.bytes,
		e.elapsed.Milliseconds(),
		e.contentEncoding,
		e.cacheControl,
		e.userAgent,
		e.referer,
	)
}

// Logger returns HTTP access logging middleware. The #Fields directive is
// written once, before the first logged request.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	out := config.Output
	if out == nil {
		out = log.Default()
	}
	var header sync.Once

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			header.Do(func() { out.Println(W3CFields) })
			//nolint:gosec // G706: every request-controlled field is passed through sanitizeLogField.
			out.Println(newAccessLogEntry(r, wrapped, time.Since(start)).String())
		})
	}
}

// sanitizeLogField strips control characters that could forge log lines or
// inject terminal escapes. Newlines become spaces; tabs are kept.
func sanitizeLogField(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune(' ')
		case r == '\x00', r == '\x1b':
			continue
		case r < 0x20 && r != '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return !config.LogHealthChecks && healthCheckPaths[path]
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// escapeW3CField quotes values containing whitespace or quotes, doubling
// embedded quotes.
func escapeW3CField(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
