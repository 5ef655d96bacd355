package tracking

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/pkg/filter"
)

// Config holds the tunable parameters for multi-object tracking
type Config struct {
	// Association
	MatchDistancePx float64       // Max center distance for a detection to keep a track's id
	StaleAfter      time.Duration // Evict tracks not seen for longer than this

	// Smoothing (Kalman process / measurement noise)
	PositionQ float64
	PositionR float64
	DepthQ    float64
	DepthR    float64
}

// DefaultConfig returns the recommended configuration for walking-pace guidance
func DefaultConfig() Config {
	return Config{
		MatchDistancePx: 120,
		StaleAfter:      1200 * time.Millisecond,

		PositionQ: filter.PositionProcessNoise,
		PositionR: filter.PositionMeasurementNoise,
		DepthQ:    filter.DepthProcessNoise,
		DepthR:    filter.DepthMeasurementNoise,
	}
}

// CrowdedConfig tightens association for busy scenes where same-label
// objects are close together
func CrowdedConfig() Config {
	cfg := DefaultConfig()
	cfg.MatchDistancePx = 80
	cfg.StaleAfter = 800 * time.Millisecond
	return cfg
}

// WithTuning applies the tracker fields of a tuning file
func (c Config) WithTuning(t *config.Tuning) Config {
	if t == nil {
		return c
	}
	c.MatchDistancePx = t.GetMatchDistancePx(c.MatchDistancePx)
	c.StaleAfter = t.GetStaleAfter(c.StaleAfter)
	return c
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.MatchDistancePx <= 0 {
		return fmt.Errorf("tracking: match distance must be positive, got %v", c.MatchDistancePx)
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("tracking: stale timeout must be positive, got %v", c.StaleAfter)
	}
	if c.PositionR <= 0 || c.DepthR <= 0 {
		return fmt.Errorf("tracking: measurement noise must be positive")
	}
	if c.PositionQ < 0 || c.DepthQ < 0 {
		return fmt.Errorf("tracking: process noise must be non-negative")
	}
	return nil
}
