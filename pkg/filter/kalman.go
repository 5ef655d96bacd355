// Package filter provides the scalar smoothers shared by the guidance pipeline:
// a one-dimensional Kalman filter and a per-label exponential moving average.
package filter

// Kalman1D is a constant-state scalar Kalman filter.
// The first measurement seeds the estimate; it is not safe for concurrent use,
// owners guard it with their own lock.
type Kalman1D struct {
	processNoise     float64
	measurementNoise float64

	estimate    float64
	errorCov    float64
	initialized bool
}

// Noise pairs for the filters used across the pipeline.
const (
	PositionProcessNoise     = 0.03
	PositionMeasurementNoise = 0.2

	DepthProcessNoise     = 0.02
	DepthMeasurementNoise = 0.1

	FrameDepthProcessNoise     = 0.01
	FrameDepthMeasurementNoise = 0.15
)

// NewKalman1D returns a filter with the given process (q) and measurement (r) noise.
func NewKalman1D(processNoise, measurementNoise float64) *Kalman1D {
	return &Kalman1D{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		errorCov:         1,
	}
}

// Update folds a measurement into the estimate and returns the new estimate.
func (k *Kalman1D) Update(measurement float64) float64 {
	if !k.initialized {
		k.estimate = measurement
		k.initialized = true
	}

	k.errorCov += k.processNoise
	gain := k.errorCov / (k.errorCov + k.measurementNoise)
	k.estimate += gain * (measurement - k.estimate)
	k.errorCov *= 1 - gain

	return k.estimate
}

// Estimate returns the current estimate without updating.
func (k *Kalman1D) Estimate() float64 {
	return k.estimate
}

// ErrorCovariance returns the current error covariance.
func (k *Kalman1D) ErrorCovariance() float64 {
	return k.errorCov
}

// Initialized reports whether the filter has seen a measurement.
func (k *Kalman1D) Initialized() bool {
	return k.initialized
}

// Reset returns the filter to its unseeded state, keeping its noise settings.
func (k *Kalman1D) Reset() {
	k.estimate = 0
	k.errorCov = 1
	k.initialized = false
}
