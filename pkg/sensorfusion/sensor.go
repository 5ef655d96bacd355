// Package sensorfusion turns accelerometer samples into a device pitch and uses
// it to correct monocular depth estimates for camera tilt.
package sensorfusion

import (
	"context"
	"time"
)

// Sample is one accelerometer reading in m/s² in the device frame.
type Sample struct {
	X, Y, Z float64
	At      time.Time
}

// MotionSensor streams accelerometer samples until ctx is cancelled.
// The returned channel is closed when the stream ends.
type MotionSensor interface {
	Samples(ctx context.Context) (<-chan Sample, error)
}

// StaticSensor emits a single fixed sample and then holds the stream open
// until the context ends. Used when no accelerometer is attached.
type StaticSensor struct {
	Sample Sample
}

// Level is a sample for an upright device (gravity along +Y).
var Level = Sample{Y: 9.81}

// Samples implements MotionSensor.
func (s StaticSensor) Samples(ctx context.Context) (<-chan Sample, error) {
	ch := make(chan Sample, 1)
	ch <- s.Sample
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

var _ MotionSensor = StaticSensor{}
