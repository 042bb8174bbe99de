package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"random-pictures/internal/logging"
	"random-pictures/internal/metrics"
)

// Config holds the thresholds of a Monitor.
type Config struct {
	// LimitBytes is the reference limit; 0 means the runtime soft limit.
	LimitBytes int64
	// HighWaterMark is the usage ratio at which throttling starts.
	HighWaterMark float64
	// LowWaterMark is the usage ratio below which throttling stops.
	LowWaterMark  float64
	CheckInterval time.Duration
}

// DefaultConfig throttles above 85% of the limit and resumes below 70%.
func DefaultConfig() Config {
	return Config{
		HighWaterMark: 0.85,
		LowWaterMark:  0.7,
		CheckInterval: 5 * time.Second,
	}
}

// Monitor samples heap usage and reports when memory-hungry work such as
// thumbnail rendering should be refused. Between the two water marks the
// previous state is kept, so the signal does not flap.
type Monitor struct {
	config    Config
	limit     int64
	throttled atomic.Bool
	alloc     atomic.Uint64

	readAlloc func() uint64
}

// NewMonitor creates a Monitor. Without a limit it never throttles.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if soft := debug.SetMemoryLimit(-1); soft > 0 && soft < 1<<62 {
			limit = soft
		}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, thumbnail back-pressure disabled")
	} else {
		logging.Info("Memory monitor using limit %s", FormatBytes(limit))
	}

	return &Monitor{
		config: config,
		limit:  limit,
		readAlloc: func() uint64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return stats.Alloc
		},
	}
}

// Enabled reports whether a limit is known.
func (m *Monitor) Enabled() bool {
	return m.limit > 0
}

// Run samples memory until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.Enabled() {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()
	m.alloc.Store(alloc)
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.HighWaterMark && !m.throttled.Load():
		m.throttled.Store(true)
		metrics.MemoryThrottled.Set(1)
		logging.Warn("Memory high (%.1f%% of limit), refusing thumbnail renders", usage*100)
		go runtime.GC()
	case usage < m.config.LowWaterMark && m.throttled.Load():
		m.throttled.Store(false)
		metrics.MemoryThrottled.Set(0)
		logging.Info("Memory recovered (%.1f%% of limit), resuming thumbnail renders", usage*100)
	}
}

// ShouldThrottle reports whether memory-hungry work should be refused.
func (m *Monitor) ShouldThrottle() bool {
	return m.throttled.Load()
}

// Usage returns the last sampled heap allocation as a fraction of the limit,
// or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	return float64(m.alloc.Load()) / float64(m.limit)
}
