package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(EnvScanWorkers, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		want       int
	}{
		{"CPU-bound", 1.0, 0, availableCPU},
		{"I/O-bound", 2.0, 0, availableCPU * 2},
		{"limit caps result", 2.0, 1, 1},
		{"tiny multiplier floors at one", 0.0001, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(EnvScanWorkers, tt.multiplier, tt.limit)
			if got != tt.want {
				t.Errorf("Count(%v, %d) = %d, want %d", tt.multiplier, tt.limit, got, tt.want)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	tests := []struct {
		name  string
		value string
		limit int
		want  int
	}{
		{"valid override", "7", 0, 7},
		{"override capped by limit", "40", 16, 16},
		{"zero ignored", "0", 0, runtime.GOMAXPROCS(0) * 2},
		{"negative ignored", "-3", 0, runtime.GOMAXPROCS(0) * 2},
		{"garbage ignored", "lots", 0, runtime.GOMAXPROCS(0) * 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvScanWorkers, tt.value)
			if got := ForIO(tt.limit); got != tt.want {
				t.Errorf("ForIO(%d) with %s=%q = %d, want %d", tt.limit, EnvScanWorkers, tt.value, got, tt.want)
			}
		})
	}
}

func TestForCPUUsesThumbnailOverride(t *testing.T) {
	t.Setenv(EnvThumbnailWorkers, "3")
	t.Setenv(EnvScanWorkers, "9")

	if got := ForCPU(0); got != 3 {
		t.Errorf("ForCPU(0) = %d, want 3", got)
	}
	if got := ForIO(0); got != 9 {
		t.Errorf("ForIO(0) = %d, want 9", got)
	}
}
