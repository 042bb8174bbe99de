package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"random-pictures/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest covers image decode buffers, goroutine stacks and the
// SQLite page cache.
const DefaultMemoryRatio = 0.85

// Result describes how the soft memory limit was configured.
type Result struct {
	Configured     bool
	Source         string // "GOMEMLIMIT", "MEMORY_LIMIT" or "none"
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets the runtime soft memory limit from MEMORY_LIMIT and
// MEMORY_RATIO unless GOMEMLIMIT is already set. Call it before large
// allocations happen.
func ConfigureFromEnv() Result {
	return configure(os.LookupEnv, debug.SetMemoryLimit)
}

func configure(lookup func(string) (string, bool), setLimit func(int64) int64) Result {
	if v, ok := lookup("GOMEMLIMIT"); ok && v != "" {
		result := Result{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw, ok := lookup("MEMORY_LIMIT")
	if !ok || raw == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return Result{Source: "none"}
	}

	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		logging.Warn("Invalid MEMORY_LIMIT %q, GOMEMLIMIT not configured", raw)
		return Result{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if s, ok := lookup("MEMORY_RATIO"); ok && s != "" {
		parsed, err := strconv.ParseFloat(s, 64)
		switch {
		case err != nil:
			logging.Warn("Failed to parse MEMORY_RATIO %q: %v, using default %.2f", s, err, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			logging.Warn("MEMORY_RATIO %q out of range (0.0-1.0), using default %.2f", s, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	setLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		FormatBytes(goMemLimit), ratio*100, FormatBytes(containerLimit))

	return Result{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

// FormatBytes renders b with binary units, e.g. "1.5 GiB".
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
