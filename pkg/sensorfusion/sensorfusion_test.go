package sensorfusion

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sightguide/internal/log"
)

func TestPitchFromAccel(t *testing.T) {
	assert.InDelta(t, 0, PitchFromAccel(0, 9.81, 0), 1e-12)
	assert.InDelta(t, -math.Pi/2, PitchFromAccel(9.81, 0, 0), 1e-12)
	assert.InDelta(t, math.Pi/4, PitchFromAccel(-1, 1, 0), 1e-12)
}

func TestPitchEstimator_Observe(t *testing.T) {
	p := NewPitchEstimator(log.Discard())
	assert.Zero(t, p.Pitch())

	p.Observe(Sample{X: -1, Y: 0, Z: 1})
	assert.InDelta(t, math.Pi/4, p.Pitch(), 1e-12)

	p.Observe(Sample{X: math.NaN(), Y: 1})
	assert.InDelta(t, math.Pi/4, p.Pitch(), 1e-12, "NaN sample must not overwrite pitch")
	assert.EqualValues(t, 1, p.SampleCount())
}

type chanSensor struct {
	ch  chan Sample
	err error
}

func (s chanSensor) Samples(context.Context) (<-chan Sample, error) {
	return s.ch, s.err
}

func TestPitchEstimator_Run(t *testing.T) {
	ch := make(chan Sample, 3)
	ch <- Sample{X: 0, Y: 9.81}
	ch <- Sample{X: -9.81, Y: 0, Z: 0.0001}
	close(ch)

	p := NewPitchEstimator(log.Discard())
	require.NoError(t, p.Run(context.Background(), chanSensor{ch: ch}))
	assert.InDelta(t, math.Pi/2, p.Pitch(), 1e-3)
	assert.EqualValues(t, 2, p.SampleCount())
}

func TestPitchEstimator_RunSubscribeError(t *testing.T) {
	boom := errors.New("no sensor")
	p := NewPitchEstimator(log.Discard())
	err := p.Run(context.Background(), chanSensor{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestPitchEstimator_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPitchEstimator(log.Discard())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, StaticSensor{Sample: Level}) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCorrectDepth(t *testing.T) {
	tests := []struct {
		name  string
		raw   float64
		pitch float64
		want  float64
	}{
		{"level", 2.0, 0, 2.0},
		{"tilted 60deg", 2.0, math.Pi / 3, 1.0},
		{"floor", 0.01, 0, MinDepth},
		{"perpendicular", 3.0, math.Pi / 2, MinDepth},
		{"negative raw", -1.0, 0, MinDepth},
		{"nan", math.NaN(), 0, MinDepth},
		{"inf", math.Inf(1), 0, MinDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CorrectDepth(tt.raw, tt.pitch), 1e-9)
		})
	}
}

func TestDepthCorrector_UsesLivePitch(t *testing.T) {
	p := NewPitchEstimator(log.Discard())
	c := NewDepthCorrector(p)

	assert.InDelta(t, 4.0, c.Correct(4.0), 1e-9)

	p.Observe(Sample{X: -math.Sqrt(3), Y: 1, Z: 0}) // pitch = 60deg
	assert.InDelta(t, 2.0, c.Correct(4.0), 1e-9)
}

func TestChannelSensor(t *testing.T) {
	s := NewChannelSensor(1)
	assert.True(t, s.Push(Sample{X: -1, Z: 1}))
	assert.False(t, s.Push(Sample{Y: 9.81}), "buffer holds one sample")
	assert.EqualValues(t, 1, s.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPitchEstimator(log.Discard())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, s) }()

	require.Eventually(t, func() bool { return p.SampleCount() == 1 }, time.Second, time.Millisecond)
	assert.InDelta(t, math.Pi/4, p.Pitch(), 1e-12)

	_, err := s.Samples(ctx)
	assert.ErrorIs(t, err, ErrAlreadySubscribed)

	cancel()
	require.NoError(t, <-done)
}

func TestChannelSensor_ClosesWithContext(t *testing.T) {
	s := NewChannelSensor(4)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Samples(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
	}
}
