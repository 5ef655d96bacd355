package sensorfusion

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrAlreadySubscribed is returned when a ChannelSensor gets a second subscriber.
var ErrAlreadySubscribed = errors.New("sensorfusion: sensor already has a subscriber")

// ChannelSensor is a MotionSensor fed by Push, for samples arriving from
// outside the process such as a phone streaming its accelerometer.
// It supports one subscriber. Push never blocks; samples are dropped while
// the buffer is full.
type ChannelSensor struct {
	ch         chan Sample
	mu         sync.Mutex
	subscribed bool
	dropped    atomic.Uint64
}

// NewChannelSensor creates a sensor buffering up to size samples.
func NewChannelSensor(size int) *ChannelSensor {
	if size < 1 {
		size = 1
	}
	return &ChannelSensor{ch: make(chan Sample, size)}
}

// Push offers s to the subscriber and reports whether it was buffered.
func (c *ChannelSensor) Push(s Sample) bool {
	select {
	case c.ch <- s:
		return true
	default:
		c.dropped.Inc()
		return false
	}
}

// Dropped returns how many samples Push discarded.
func (c *ChannelSensor) Dropped() uint64 {
	return c.dropped.Load()
}

// Samples implements MotionSensor. The stream ends with ctx; the returned
// channel is closed then.
func (c *ChannelSensor) Samples(ctx context.Context) (<-chan Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return nil, ErrAlreadySubscribed
	}
	c.subscribed = true

	out := make(chan Sample)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-c.ch:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

var _ MotionSensor = (*ChannelSensor)(nil)
