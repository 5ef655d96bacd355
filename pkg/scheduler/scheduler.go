package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler measures processed-frame throughput over a fixed window and
// adapts the per-stage cadence to it.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	clk    clock.Clock
	logger *slog.Logger

	base    Cadence
	current Cadence

	windowStart time.Time
	count       int
	fps         float64
}

// NewScheduler creates a scheduler starting at rt's cadence. An invalid cfg
// falls back to DefaultConfig; a nil clk uses the wall clock.
func NewScheduler(rt RuntimeConfig, cfg Config, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid scheduler config, using defaults", "error", err)
		cfg = DefaultConfig()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		base:    rt.Cadence,
		current: rt.Cadence,
	}
}

// Tick records a processed frame at the scheduler clock's current time.
func (s *Scheduler) Tick() {
	s.RecordFrame(s.clk.Now())
}

// RecordFrame counts one processed frame. When the window has elapsed it
// computes the fps, resets the counter and recomputes the cadence.
func (s *Scheduler) RecordFrame(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The first frame only opens the window; it is the interval start, not a
	// completed frame.
	if s.windowStart.IsZero() {
		s.windowStart = now
		return
	}
	s.count++

	elapsed := now.Sub(s.windowStart)
	if elapsed < s.cfg.Window {
		return
	}

	s.fps = float64(s.count) / elapsed.Seconds()
	s.count = 0
	s.windowStart = now

	prev := s.current
	s.current = s.cadenceFor(s.fps)
	if s.current != prev {
		s.logger.Debug("cadence changed", "fps", s.fps, "from", prev, "to", s.current)
	}
}

func (s *Scheduler) cadenceFor(fps float64) Cadence {
	switch {
	case fps < s.cfg.SlowFPS:
		return s.base.zipWith(s.cfg.SlowCadence, func(a, b int) int { return max(a, b) })
	case fps > s.cfg.FastFPS:
		return s.base.zipWith(s.cfg.FastCadence, func(a, b int) int { return min(a, b) })
	default:
		return s.base
	}
}

// ShouldRun reports whether stage runs on frame frameIndex.
func (s *Scheduler) ShouldRun(stage Stage, frameIndex uint64) bool {
	s.mu.Lock()
	interval := uint64(s.current.Interval(stage))
	s.mu.Unlock()
	return frameIndex%interval == 0
}

// FPS returns the throughput measured over the last complete window.
func (s *Scheduler) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

// Cadence returns the cadence in effect.
func (s *Scheduler) Cadence() Cadence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Reset discards the measurement and returns to the runtime cadence.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowStart = time.Time{}
	s.count = 0
	s.fps = 0
	s.current = s.base
}
