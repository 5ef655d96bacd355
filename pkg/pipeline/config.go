package pipeline

import (
	"fmt"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/pkg/filter"
	"github.com/teslashibe/go-sightguide/pkg/navigation"
	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/scheduler"
	"github.com/teslashibe/go-sightguide/pkg/tracking"
)

// Config holds every per-stage setting of a pipeline.
type Config struct {
	// Detection filtering
	ConfidenceAlpha float64 // per-label EMA weight of the newest confidence
	MinConfidence   float64 // detections below this after smoothing are dropped

	// Depth
	InitialDepth float64 // frame depth before the first successful estimate (meters)

	// Label sets requested from each detector
	ObjectLabels []string
	HazardLabels []string

	Tracking  tracking.Config
	Engine    navigation.EngineConfig
	Gate      navigation.GateConfig
	Scheduler scheduler.Config
}

// DefaultConfig returns the standard guidance settings.
func DefaultConfig() Config {
	return Config{
		ConfidenceAlpha: filter.DefaultConfidenceAlpha,
		MinConfidence:   0.25,
		InitialDepth:    2.0,
		ObjectLabels:    perception.ObjectLabels,
		HazardLabels:    perception.HazardLabels,
		Tracking:        tracking.DefaultConfig(),
		Engine:          navigation.DefaultEngineConfig(),
		Gate:            navigation.DefaultGateConfig(),
		Scheduler:       scheduler.DefaultConfig(),
	}
}

// WithTuning applies a tuning file to every stage.
func (c Config) WithTuning(t *config.Tuning) Config {
	if t == nil {
		return c
	}
	c.ConfidenceAlpha = t.GetConfidenceAlpha(c.ConfidenceAlpha)
	c.MinConfidence = t.GetMinConfidence(c.MinConfidence)
	c.Tracking = c.Tracking.WithTuning(t)
	c.Engine = c.Engine.WithTuning(t)
	c.Gate = c.Gate.WithTuning(t)
	c.Scheduler = c.Scheduler.WithTuning(t)
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ConfidenceAlpha <= 0 || c.ConfidenceAlpha > 1 {
		return fmt.Errorf("pipeline: confidence alpha must be in (0, 1], got %v", c.ConfidenceAlpha)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("pipeline: min confidence must be in [0, 1], got %v", c.MinConfidence)
	}
	if c.InitialDepth <= 0 {
		return fmt.Errorf("pipeline: initial depth must be positive, got %v", c.InitialDepth)
	}
	if err := c.Tracking.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}
