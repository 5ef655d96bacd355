package sensorfusion

import "math"

// MinDepth is the floor applied to every corrected depth, in meters.
const MinDepth = 0.05

// PitchSource reports the current device pitch in radians.
type PitchSource interface {
	Pitch() float64
}

// DepthCorrector projects a raw camera-axis depth onto the walking plane.
type DepthCorrector struct {
	pitch PitchSource
}

// NewDepthCorrector creates a corrector reading pitch from src.
func NewDepthCorrector(src PitchSource) *DepthCorrector {
	return &DepthCorrector{pitch: src}
}

// Correct returns max(raw·cos(pitch), MinDepth).
func (c *DepthCorrector) Correct(raw float64) float64 {
	return CorrectDepth(raw, c.pitch.Pitch())
}

// CorrectDepth is Correct with an explicit pitch.
func CorrectDepth(raw, pitch float64) float64 {
	v := raw * math.Cos(pitch)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < MinDepth {
		return MinDepth
	}
	return v
}
