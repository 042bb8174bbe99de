package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Environment overrides per workload.
const (
	EnvScanWorkers      = "SCAN_WORKERS"
	EnvThumbnailWorkers = "THUMBNAIL_WORKERS"
)

// Count returns a worker count of multiplier x GOMAXPROCS, at least 1 and at
// most limit (0 means no limit). A positive integer in the overrideEnv
// variable replaces the computed value.
func Count(overrideEnv string, multiplier float64, limit int) int {
	if overrideEnv != "" {
		if override := os.Getenv(overrideEnv); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				if limit > 0 && count > limit {
					return limit
				}
				return count
			}
		}
	}

	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(EnvThumbnailWorkers, 1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(EnvScanWorkers, 2.0, limit)
}
