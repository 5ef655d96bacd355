package scheduler

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-sightguide/internal/config"
)

// Config holds the throughput thresholds for cadence adaptation
type Config struct {
	Window time.Duration // FPS measurement window

	SlowFPS float64 // below this, relax every stage to SlowCadence
	FastFPS float64 // above this, tighten every stage to FastCadence

	SlowCadence Cadence // coarsest intervals, never finer than the runtime default
	FastCadence Cadence // finest intervals, never coarser than the runtime default
}

// DefaultConfig returns the standard adaptation thresholds
func DefaultConfig() Config {
	return Config{
		Window:      time.Second,
		SlowFPS:     14,
		FastFPS:     20,
		SlowCadence: Cadence{Objects: 5, Hazards: 5, Depth: 5},
		FastCadence: Cadence{Objects: 1, Hazards: 1, Depth: 2},
	}
}

// WithTuning applies the scheduler fields of a tuning file
func (c Config) WithTuning(t *config.Tuning) Config {
	if t == nil {
		return c
	}
	c.SlowFPS = t.GetSlowFPS(c.SlowFPS)
	c.FastFPS = t.GetFastFPS(c.FastFPS)
	return c
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("scheduler: window must be positive, got %v", c.Window)
	}
	if c.SlowFPS >= c.FastFPS {
		return fmt.Errorf("scheduler: slow fps %v must be below fast fps %v", c.SlowFPS, c.FastFPS)
	}
	return nil
}
