package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/internal/log"
	"github.com/teslashibe/go-sightguide/pkg/narrator"
	"github.com/teslashibe/go-sightguide/pkg/navigation"
	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/scheduler"
)

const (
	frameW = 640
	frameH = 480
)

var everyFrame = scheduler.RuntimeConfig{
	UsingGPU: true,
	Cadence:  scheduler.Cadence{Objects: 1, Hazards: 1, Depth: 1},
	Threads:  4,
}

type fixedPitch float64

func (p fixedPitch) Pitch() float64 { return float64(p) }

type harness struct {
	p     *Pipeline
	clk   *clock.Mock
	voice *narrator.Recorder
	ui    *Collector
}

func newHarness(t *testing.T, rt scheduler.RuntimeConfig, deps Deps) *harness {
	t.Helper()
	h := &harness{
		clk:   clock.NewMock(),
		voice: narrator.NewRecorder(),
		ui:    &Collector{},
	}
	if deps.Narrator == nil {
		deps.Narrator = h.voice
	}
	deps.UI = h.ui

	p, err := New(rt, DefaultConfig(), deps,
		WithClock(h.clk),
		WithLogger(log.Discard()),
		WithSessionID("test-session"),
	)
	require.NoError(t, err)
	h.p = p
	return h
}

func (h *harness) step() Update {
	u := h.p.Process(context.Background(), perception.NewStaticFrame(frameW, frameH))
	h.clk.Add(50 * time.Millisecond)
	return u
}

func det(label string, x, depth float64) perception.Detection {
	return perception.Detection{Label: label, Confidence: 0.9, CenterX: x, CenterY: frameH / 2, Depth: depth}
}

func TestPipeline_EmptyFrameIsClearPath(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{Objects: perception.StaticDetector()})

	u := h.step()
	assert.Equal(t, navigation.CommandClearPath, u.Command)
	assert.Empty(t, u.Tracks)
	assert.True(t, u.Spoken)
	assert.Equal(t, []string{string(navigation.CommandClearPath)}, h.voice.Texts())
}

func TestPipeline_CloseCenterObjectStops(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(det("person", frameW/2, 0.3)),
	})

	u := h.step()
	assert.Equal(t, navigation.CommandStop, u.Command)
	require.Len(t, u.Tracks, 1)
	assert.Equal(t, perception.ZoneCenter, u.Tracks[0].Zone)
	assert.InDelta(t, 0.3, u.Tracks[0].Depth, 1e-9)
	assert.Equal(t, []string{string(navigation.CommandStop)}, h.voice.Texts())
}

func TestPipeline_StaircaseOnTheLeft(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(),
		Hazards: perception.StaticDetector(det("staircase", 100, 2.0)),
	})

	u := h.step()
	assert.Equal(t, navigation.CommandStaircase, u.Command)
	require.Len(t, u.Tracks, 1)
	assert.Equal(t, perception.ZoneLeft, u.Tracks[0].Zone)
}

func TestPipeline_SteersTowardOpenSide(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(
			det("person", 100, 3.0),
			det("chair", 540, 1.0),
		),
	})

	u := h.step()
	assert.Equal(t, navigation.CommandSteerLeft, u.Command)
	require.Len(t, u.Tracks, 2)
	assert.Equal(t, "chair", u.Tracks[0].Label, "tracks are nearest first")
}

func TestPipeline_DetectorErrorMeansNoDetections(t *testing.T) {
	broken := &perception.MockDetector{
		DetectFunc: func(context.Context, perception.Frame, []string) ([]perception.Detection, error) {
			return nil, errors.New("inference failed")
		},
	}
	h := newHarness(t, everyFrame, Deps{
		Objects: broken,
		Hazards: perception.StaticDetector(det("pothole", frameW/2, 2.0)),
	})

	u := h.step()
	assert.Equal(t, navigation.CommandPothole, u.Command)
	require.Len(t, u.StageErrors, 1)
	assert.Contains(t, u.StageErrors[0], "objects")
}

func TestPipeline_DetectorPanicIsContained(t *testing.T) {
	panicky := &perception.MockDetector{
		DetectFunc: func(context.Context, perception.Frame, []string) ([]perception.Detection, error) {
			panic("scratch buffer overrun")
		},
	}
	h := newHarness(t, everyFrame, Deps{Objects: panicky})

	u := h.step()
	assert.Equal(t, navigation.CommandClearPath, u.Command)
	require.Len(t, u.StageErrors, 1)
	assert.Contains(t, u.StageErrors[0], ErrStagePanic.Error())

	u = h.step()
	assert.Equal(t, uint64(1), u.Frame)
}

func TestPipeline_NonFiniteCenterDropped(t *testing.T) {
	calls := 0
	objects := &perception.MockDetector{
		DetectFunc: func(context.Context, perception.Frame, []string) ([]perception.Detection, error) {
			calls++
			if calls == 1 {
				return []perception.Detection{det("person", math.NaN(), 0.3)}, nil
			}
			return []perception.Detection{det("person", frameW/2, 0.3)}, nil
		},
	}
	h := newHarness(t, everyFrame, Deps{Objects: objects})

	u := h.step()
	assert.Equal(t, navigation.CommandClearPath, u.Command)
	assert.Empty(t, u.Tracks)

	u = h.step()
	assert.Equal(t, navigation.CommandStop, u.Command)
	require.Len(t, u.Tracks, 1)
	assert.EqualValues(t, 1, u.Tracks[0].ID)
	assert.False(t, math.IsNaN(u.Tracks[0].CenterX))
	assert.InDelta(t, frameW/2, u.Tracks[0].CenterX, 1e-9)
}

func TestPipeline_DepthFallback(t *testing.T) {
	calls := 0
	depth := &perception.MockDepth{
		EstimateFunc: func(context.Context, perception.Frame) (float64, error) {
			calls++
			if calls == 1 {
				return 1.0, nil
			}
			return 0, errors.New("model busy")
		},
	}
	h := newHarness(t, everyFrame, Deps{Depth: depth})

	u := h.step()
	assert.InDelta(t, 1.0, u.Depth, 1e-9)
	assert.Empty(t, u.StageErrors)

	u = h.step()
	assert.InDelta(t, 1.0, u.Depth, 1e-9, "failed estimate keeps the last depth")
	assert.Len(t, u.StageErrors, 1)
}

func TestPipeline_InitialDepthBeforeAnyEstimate(t *testing.T) {
	depth := &perception.MockDepth{
		EstimateFunc: func(context.Context, perception.Frame) (float64, error) {
			return math.NaN(), nil
		},
	}
	h := newHarness(t, everyFrame, Deps{Depth: depth})

	u := h.step()
	assert.Equal(t, 2.0, u.Depth)
	require.Len(t, u.StageErrors, 1)
	assert.Contains(t, u.StageErrors[0], "depth")
}

func TestPipeline_DetectionWithoutDepthUsesFrameDepth(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(det("person", frameW/2, 0)),
		Depth: &perception.MockDepth{EstimateFunc: func(context.Context, perception.Frame) (float64, error) {
			return 0.4, nil
		}},
	})

	u := h.step()
	assert.Equal(t, navigation.CommandStop, u.Command)
}

func TestPipeline_PitchShortensDepth(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(det("person", frameW/2, 0.8)),
		Pitch:   fixedPitch(math.Pi / 3),
	})

	u := h.step()
	require.Len(t, u.Tracks, 1)
	assert.InDelta(t, 0.4, u.Tracks[0].Depth, 1e-9)
	assert.Equal(t, navigation.CommandStop, u.Command)
	assert.InDelta(t, math.Pi/3, u.Pitch, 1e-12)
}

func TestPipeline_WeakDetectionsFiltered(t *testing.T) {
	weak := det("person", frameW/2, 0.3)
	weak.Confidence = 0.1
	h := newHarness(t, everyFrame, Deps{Objects: perception.StaticDetector(weak)})

	u := h.step()
	assert.Equal(t, navigation.CommandClearPath, u.Command)
}

func TestPipeline_GateDebouncesSpeech(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(det("person", frameW/2, 0.3)),
	})

	first := h.step()
	second := h.step()
	assert.True(t, first.Spoken)
	assert.False(t, second.Spoken)
	assert.Equal(t, first.Tracks[0].ID, second.Tracks[0].ID)
	assert.Len(t, h.voice.Texts(), 1)
}

func TestPipeline_NarratorDownStillPublishes(t *testing.T) {
	voice := narrator.NewRecorder()
	voice.SetOperational(false)
	h := newHarness(t, everyFrame, Deps{
		Objects:  perception.StaticDetector(det("person", frameW/2, 0.3)),
		Narrator: voice,
	})

	u := h.step()
	assert.Equal(t, navigation.CommandStop, u.Command)
	assert.False(t, u.Spoken)
	assert.False(t, u.NarratorOK)
	assert.Empty(t, voice.Texts())

	last, ok := h.ui.Last()
	require.True(t, ok)
	assert.Equal(t, navigation.CommandStop, last.Command)

	// Speech resumes after a reset; the gate was never consulted while down.
	voice.Reset()
	u = h.step()
	assert.True(t, u.Spoken)
}

func TestPipeline_SkippedStageReusesDetections(t *testing.T) {
	objects := perception.StaticDetector(det("person", frameW/2, 0.3))
	rt := everyFrame
	rt.Cadence.Objects = 2
	h := newHarness(t, rt, Deps{Objects: objects})

	h.step()
	u := h.step()
	assert.Equal(t, 1, objects.CallCount())
	assert.Equal(t, navigation.CommandStop, u.Command)

	h.step()
	assert.Equal(t, 2, objects.CallCount())
}

func TestPipeline_PassesLabelSets(t *testing.T) {
	objects := perception.StaticDetector()
	hazards := perception.StaticDetector()
	h := newHarness(t, everyFrame, Deps{Objects: objects, Hazards: hazards})

	h.step()
	assert.Equal(t, perception.ObjectLabels, objects.LastLabels())
	assert.Equal(t, perception.HazardLabels, hazards.LastLabels())
}

func TestPipeline_UpdateMetadata(t *testing.T) {
	h := newHarness(t, scheduler.ProbeRuntime(scheduler.Capabilities{CPUs: 8}), Deps{})

	u := h.step()
	assert.Equal(t, "test-session", u.SessionID)
	assert.Equal(t, "CPU", u.Mode)
	assert.Equal(t, scheduler.CPUCadence, u.Cadence)
	assert.Len(t, h.ui.Updates(), 1)
}

func TestPipeline_RunnerProcessesSubmittedFrames(t *testing.T) {
	h := newHarness(t, everyFrame, Deps{
		Objects: perception.StaticDetector(det("person", frameW/2, 0.3)),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.p.Run(ctx) }()

	frame := perception.NewStaticFrame(frameW, frameH)
	require.Eventually(t, func() bool { return h.p.Submit(frame) }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return frame.Releases() == 1 }, time.Second, time.Millisecond)

	last, ok := h.p.Last()
	require.True(t, ok)
	assert.Equal(t, navigation.CommandStop, last.Command)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), h.p.Stats().Processed)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 2
	_, err := New(everyFrame, cfg, Deps{})
	assert.Error(t, err)
}

func TestConfig_WithTuning(t *testing.T) {
	minConf := 0.4
	stop := 0.7
	cfg := DefaultConfig().WithTuning(&config.Tuning{MinConfidence: &minConf, StopDistanceM: &stop})
	assert.Equal(t, 0.4, cfg.MinConfidence)
	assert.Equal(t, 0.7, cfg.Engine.StopDistance)
	assert.Equal(t, DefaultConfig().Tracking, cfg.Tracking)
}
