package sensorfusion

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.uber.org/atomic"
)

// PitchEstimator derives the device pitch from gravity.
// One goroutine writes through Observe or Run; any number may read Pitch.
type PitchEstimator struct {
	pitch   atomic.Float64
	samples atomic.Int64
	logger  *slog.Logger
}

// NewPitchEstimator creates an estimator reporting a level pitch of 0.
func NewPitchEstimator(logger *slog.Logger) *PitchEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PitchEstimator{logger: logger.With("component", "pitch")}
}

// PitchFromAccel returns atan2(-x, sqrt(y²+z²)) in radians.
func PitchFromAccel(x, y, z float64) float64 {
	return math.Atan2(-x, math.Sqrt(y*y+z*z))
}

// Observe publishes the pitch implied by s. Non-finite samples are ignored.
func (p *PitchEstimator) Observe(s Sample) {
	v := PitchFromAccel(s.X, s.Y, s.Z)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	p.pitch.Store(v)
	p.samples.Inc()
}

// Pitch returns the latest pitch in radians.
func (p *PitchEstimator) Pitch() float64 {
	return p.pitch.Load()
}

// SampleCount returns how many samples have been applied.
func (p *PitchEstimator) SampleCount() int64 {
	return p.samples.Load()
}

// Run consumes sensor until ctx ends or the stream closes.
func (p *PitchEstimator) Run(ctx context.Context, sensor MotionSensor) error {
	ch, err := sensor.Samples(ctx)
	if err != nil {
		return fmt.Errorf("subscribe motion sensor: %w", err)
	}

	p.logger.Debug("pitch estimator started")
	defer p.logger.Debug("pitch estimator stopped", "samples", p.samples.Load())

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-ch:
			if !ok {
				return nil
			}
			p.Observe(s)
		}
	}
}
