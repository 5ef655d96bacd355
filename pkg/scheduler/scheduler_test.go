package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sightguide/internal/log"
	"github.com/teslashibe/go-sightguide/pkg/perception"
)

func TestProbeRuntime(t *testing.T) {
	gpu := ProbeRuntime(Capabilities{GPU: true, CPUs: 8})
	assert.True(t, gpu.UsingGPU)
	assert.False(t, gpu.CPUOnly)
	assert.Equal(t, Cadence{Objects: 1, Hazards: 1, Depth: 3}, gpu.Cadence)
	assert.Equal(t, 4, gpu.Threads)
	assert.Equal(t, "GPU", gpu.Mode())

	cpu := ProbeRuntime(Capabilities{CPUs: 2})
	assert.True(t, cpu.CPUOnly)
	assert.Equal(t, Cadence{Objects: 3, Hazards: 5, Depth: 5}, cpu.Cadence)
	assert.Equal(t, 2, cpu.Threads)
	assert.Equal(t, "CPU", cpu.Mode())
}

func TestCadence_Interval(t *testing.T) {
	c := Cadence{Objects: 2, Hazards: 0, Depth: 7}
	assert.Equal(t, 2, c.Interval(StageObjects))
	assert.Equal(t, 1, c.Interval(StageHazards), "non-positive intervals clamp to 1")
	assert.Equal(t, 7, c.Interval(StageDepth))
	assert.Equal(t, 1, c.Interval(Stage(42)))
	assert.Equal(t, "depth", StageDepth.String())
}

// drive records n frames evenly spread over one window on the mock clock.
func drive(s *Scheduler, clk *clock.Mock, n int) {
	step := time.Second / time.Duration(n)
	for i := 0; i < n; i++ {
		s.Tick()
		clk.Add(step)
	}
	clk.Add(time.Second - step*time.Duration(n))
	s.Tick()
}

func newTestScheduler(rt RuntimeConfig) (*Scheduler, *clock.Mock) {
	clk := clock.NewMock()
	return NewScheduler(rt, DefaultConfig(), clk, log.Discard()), clk
}

func TestScheduler_DefaultBeforeFirstWindow(t *testing.T) {
	rt := ProbeRuntime(Capabilities{CPUs: 4})
	s, clk := newTestScheduler(rt)

	for i := 0; i < 5; i++ {
		s.Tick()
		clk.Add(100 * time.Millisecond)
	}
	assert.Equal(t, rt.Cadence, s.Cadence())
	assert.Zero(t, s.FPS())
}

func TestScheduler_SlowRelaxes(t *testing.T) {
	rt := ProbeRuntime(Capabilities{GPU: true})
	s, clk := newTestScheduler(rt)

	drive(s, clk, 10)
	assert.InDelta(t, 10, s.FPS(), 0.01)
	assert.Equal(t, Cadence{Objects: 5, Hazards: 5, Depth: 5}, s.Cadence())
}

func TestScheduler_FirstWindowCountsIntervals(t *testing.T) {
	rt := RuntimeConfig{UsingGPU: true, Cadence: Cadence{Objects: 1, Hazards: 1, Depth: 1}}
	s, clk := newTestScheduler(rt)

	step := time.Second / 13
	for i := 0; i < 15; i++ {
		s.Tick()
		clk.Add(step)
	}
	assert.InDelta(t, 13, s.FPS(), 0.01)
	assert.Equal(t, Cadence{Objects: 5, Hazards: 5, Depth: 5}, s.Cadence())
}

func TestScheduler_FastTightens(t *testing.T) {
	rt := ProbeRuntime(Capabilities{CPUs: 4})
	s, clk := newTestScheduler(rt)

	drive(s, clk, 30)
	assert.Greater(t, s.FPS(), 20.0)
	assert.Equal(t, Cadence{Objects: 1, Hazards: 1, Depth: 2}, s.Cadence())
}

func TestScheduler_FastNeverCoarsensGPU(t *testing.T) {
	rt := RuntimeConfig{UsingGPU: true, Cadence: Cadence{Objects: 1, Hazards: 1, Depth: 1}}
	s, clk := newTestScheduler(rt)

	drive(s, clk, 30)
	assert.Equal(t, Cadence{Objects: 1, Hazards: 1, Depth: 1}, s.Cadence())
}

func TestScheduler_MidBandUsesDefault(t *testing.T) {
	rt := ProbeRuntime(Capabilities{CPUs: 4})
	s, clk := newTestScheduler(rt)

	drive(s, clk, 30)
	require.NotEqual(t, rt.Cadence, s.Cadence())

	drive(s, clk, 16)
	assert.Equal(t, rt.Cadence, s.Cadence())
}

func TestScheduler_ShouldRun(t *testing.T) {
	s, _ := newTestScheduler(RuntimeConfig{Cadence: Cadence{Objects: 1, Hazards: 5, Depth: 3}})

	var objects, hazards, depth int
	for i := uint64(0); i < 15; i++ {
		if s.ShouldRun(StageObjects, i) {
			objects++
		}
		if s.ShouldRun(StageHazards, i) {
			hazards++
		}
		if s.ShouldRun(StageDepth, i) {
			depth++
		}
	}
	assert.Equal(t, 15, objects)
	assert.Equal(t, 3, hazards)
	assert.Equal(t, 5, depth)
}

func TestScheduler_Reset(t *testing.T) {
	rt := ProbeRuntime(Capabilities{GPU: true})
	s, clk := newTestScheduler(rt)
	drive(s, clk, 5)
	require.NotEqual(t, rt.Cadence, s.Cadence())

	s.Reset()
	assert.Equal(t, rt.Cadence, s.Cadence())
	assert.Zero(t, s.FPS())
}

func TestGate(t *testing.T) {
	var g Gate
	require.True(t, g.TryAcquire())
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire())
	g.Release()
	assert.True(t, g.TryAcquire())
}

func TestRunner_ProcessesAndReleases(t *testing.T) {
	processed := make(chan perception.Frame, 1)
	r := NewRunner(func(_ context.Context, f perception.Frame) {
		processed <- f
	}, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	f := perception.NewStaticFrame(640, 480)
	require.True(t, r.Submit(f))

	select {
	case got := <-processed:
		assert.Same(t, f, got)
	case <-time.After(2 * time.Second):
		t.Fatal("frame was not processed")
	}

	assert.Eventually(t, func() bool { return !r.Busy() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.Releases())
	assert.EqualValues(t, 1, r.Stats().Processed)
}

func TestRunner_DropsWhileBusy(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	r := NewRunner(func(context.Context, perception.Frame) {
		close(started)
		<-unblock
	}, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	first := perception.NewStaticFrame(10, 10)
	require.True(t, r.Submit(first))
	<-started

	second := perception.NewStaticFrame(10, 10)
	assert.False(t, r.Submit(second))
	assert.Equal(t, 1, second.Releases(), "dropped frame is released immediately")
	assert.Equal(t, 0, first.Releases(), "in-flight frame is held until processed")

	close(unblock)
	assert.Eventually(t, func() bool { return first.Releases() == 1 && !r.Busy() }, time.Second, 5*time.Millisecond)

	st := r.Stats()
	assert.EqualValues(t, 2, st.Submitted)
	assert.EqualValues(t, 1, st.Dropped)
}

func TestRunner_RecoversPanics(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	r := NewRunner(func(context.Context, perception.Frame) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			panic("detector exploded")
		}
	}, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	f1 := perception.NewStaticFrame(10, 10)
	require.True(t, r.Submit(f1))
	require.Eventually(t, func() bool { return f1.Releases() == 1 && !r.Busy() }, time.Second, 5*time.Millisecond)

	f2 := perception.NewStaticFrame(10, 10)
	require.True(t, r.Submit(f2))
	require.Eventually(t, func() bool { return f2.Releases() == 1 && !r.Busy() }, time.Second, 5*time.Millisecond)

	st := r.Stats()
	assert.EqualValues(t, 1, st.Panics)
	assert.EqualValues(t, 1, st.Processed)
}

func TestRunner_RejectsAfterStop(t *testing.T) {
	r := NewRunner(func(context.Context, perception.Frame) {}, log.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	f := perception.NewStaticFrame(10, 10)
	assert.False(t, r.Submit(f))
	assert.Equal(t, 1, f.Releases())
}

func TestRunner_SubmitDuringStopNeverStrandsFrame(t *testing.T) {
	for i := 0; i < 500; i++ {
		r := NewRunner(func(context.Context, perception.Frame) {}, log.Discard())
		ctx, cancel := context.WithCancel(context.Background())

		stopped := make(chan struct{})
		go func() {
			_ = r.Run(ctx)
			close(stopped)
		}()

		f := perception.NewStaticFrame(10, 10)
		submitted := make(chan struct{})
		go func() {
			r.Submit(f)
			close(submitted)
		}()
		cancel()
		<-stopped
		<-submitted

		require.Equal(t, 1, f.Releases(), "iteration %d", i)
		require.False(t, r.Busy(), "iteration %d", i)
	}
}
