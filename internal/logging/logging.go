package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel orders message severities; higher is more severe.
type LogLevel int32

// Levels in increasing severity.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	currentLevel atomic.Int32
	levelOnce    sync.Once
)

// initLevel seeds the level from the environment the first time it is read.
func initLevel() {
	levelOnce.Do(func() {
		if debug := os.Getenv("DEBUG"); debug != "" {
			switch strings.ToLower(debug) {
			case "1", "true", "yes", "on":
				currentLevel.Store(int32(LevelDebug))
				return
			}
		}

		level, ok := ParseLevel(os.Getenv("LOG_LEVEL"))
		if !ok {
			level = LevelInfo
		}
		currentLevel.Store(int32(level))
	})
}

// ParseLevel converts a level name into a LogLevel. The second result is
// false when the name is not recognised.
func ParseLevel(name string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	currentLevel.Store(int32(level))
}

// GetLevel reports the level below which messages are dropped.
func GetLevel() LogLevel {
	initLevel()
	return LogLevel(currentLevel.Load())
}

// IsDebugEnabled lets callers skip building expensive debug arguments.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// logf prints through the standard logger when level is enabled, tagged
// with the upper-case level name.
func logf(level LogLevel, format string, args []interface{}) {
	if GetLevel() > level {
		return
	}
	log.Printf("["+strings.ToUpper(level.String())+"] "+format, args...)
}

// Debug is for per-request and per-scan detail.
func Debug(format string, args ...interface{}) { logf(LevelDebug, format, args) }

// Info is for lifecycle events such as publishes and startup steps.
func Info(format string, args ...interface{}) { logf(LevelInfo, format, args) }

// Warn is for recoverable failures; the service keeps running.
func Warn(format string, args ...interface{}) { logf(LevelWarn, format, args) }

// Error is for failures that lose a request or a scan.
func Error(format string, args ...interface{}) { logf(LevelError, format, args) }

// Fatal logs regardless of level and exits with status 1.
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the name ParseLevel accepts for l.
func (l LogLevel) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("unknown(%d)", l)
}
