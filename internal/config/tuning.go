package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the optional guidance tuning overrides loaded from YAML.
// Nil fields keep the package defaults; the Get* accessors resolve them.
type Tuning struct {
	// Tracker
	MatchDistancePx *float64 `yaml:"match_distance_px,omitempty"`
	StaleAfter      *string  `yaml:"stale_after,omitempty"` // duration string like "1200ms"

	// Detection smoothing
	ConfidenceAlpha *float64 `yaml:"confidence_alpha,omitempty"`
	MinConfidence   *float64 `yaml:"min_confidence,omitempty"`

	// Announcement gate
	SpeakGap    *string  `yaml:"speak_gap,omitempty"`
	DepthDeltaM *float64 `yaml:"depth_delta_m,omitempty"`

	// Decision engine
	StopDistanceM *float64 `yaml:"stop_distance_m,omitempty"`
	SteerMarginM  *float64 `yaml:"steer_margin_m,omitempty"`

	// Scheduler
	SlowFPS *float64 `yaml:"slow_fps,omitempty"`
	FastFPS *float64 `yaml:"fast_fps,omitempty"`
}

const maxTuningFileSize = 1 << 20

// LoadTuning reads a YAML tuning file. Omitted fields keep their defaults,
// so partial files are fine.
func LoadTuning(path string) (*Tuning, error) {
	clean := filepath.Clean(path)
	switch ext := filepath.Ext(clean); ext {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("tuning file must have .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("stat tuning file: %w", err)
	}
	if info.Size() > maxTuningFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", info.Size(), maxTuningFileSize)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}

	t := &Tuning{}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate checks ranges of the fields that are set.
func (t *Tuning) Validate() error {
	if t.MatchDistancePx != nil && *t.MatchDistancePx <= 0 {
		return fmt.Errorf("match_distance_px must be positive, got %v", *t.MatchDistancePx)
	}
	if t.ConfidenceAlpha != nil && (*t.ConfidenceAlpha <= 0 || *t.ConfidenceAlpha > 1) {
		return fmt.Errorf("confidence_alpha must be in (0, 1], got %v", *t.ConfidenceAlpha)
	}
	if t.MinConfidence != nil && (*t.MinConfidence < 0 || *t.MinConfidence > 1) {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", *t.MinConfidence)
	}
	if t.DepthDeltaM != nil && *t.DepthDeltaM < 0 {
		return fmt.Errorf("depth_delta_m must be non-negative, got %v", *t.DepthDeltaM)
	}
	if t.StopDistanceM != nil && *t.StopDistanceM <= 0 {
		return fmt.Errorf("stop_distance_m must be positive, got %v", *t.StopDistanceM)
	}
	if t.SteerMarginM != nil && *t.SteerMarginM < 0 {
		return fmt.Errorf("steer_margin_m must be non-negative, got %v", *t.SteerMarginM)
	}
	if t.SlowFPS != nil && t.FastFPS != nil && *t.SlowFPS >= *t.FastFPS {
		return fmt.Errorf("slow_fps (%v) must be below fast_fps (%v)", *t.SlowFPS, *t.FastFPS)
	}
	for name, s := range map[string]*string{"stale_after": t.StaleAfter, "speak_gap": t.SpeakGap} {
		if s == nil || *s == "" {
			continue
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *s, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetMatchDistancePx returns match_distance_px or def.
func (t *Tuning) GetMatchDistancePx(def float64) float64 { return floatOr(t.MatchDistancePx, def) }

// GetStaleAfter returns stale_after or def.
func (t *Tuning) GetStaleAfter(def time.Duration) time.Duration { return durationOr(t.StaleAfter, def) }

// GetConfidenceAlpha returns confidence_alpha or def.
func (t *Tuning) GetConfidenceAlpha(def float64) float64 { return floatOr(t.ConfidenceAlpha, def) }

// GetMinConfidence returns min_confidence or def.
func (t *Tuning) GetMinConfidence(def float64) float64 { return floatOr(t.MinConfidence, def) }

// GetSpeakGap returns speak_gap or def.
func (t *Tuning) GetSpeakGap(def time.Duration) time.Duration { return durationOr(t.SpeakGap, def) }

// GetDepthDeltaM returns depth_delta_m or def.
func (t *Tuning) GetDepthDeltaM(def float64) float64 { return floatOr(t.DepthDeltaM, def) }

// GetStopDistanceM returns stop_distance_m or def.
func (t *Tuning) GetStopDistanceM(def float64) float64 { return floatOr(t.StopDistanceM, def) }

// GetSteerMarginM returns steer_margin_m or def.
func (t *Tuning) GetSteerMarginM(def float64) float64 { return floatOr(t.SteerMarginM, def) }

// GetSlowFPS returns slow_fps or def.
func (t *Tuning) GetSlowFPS(def float64) float64 { return floatOr(t.SlowFPS, def) }

// GetFastFPS returns fast_fps or def.
func (t *Tuning) GetFastFPS(def float64) float64 { return floatOr(t.FastFPS, def) }
