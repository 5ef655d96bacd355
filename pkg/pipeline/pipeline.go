// Package pipeline turns camera frames into guidance commands.
//
// For every admitted frame the pipeline runs the detectors and the depth
// estimator that the scheduler allows, corrects depth for device pitch,
// projects and zones each detection, tracks objects across frames, picks a
// command and decides whether to speak it. Each stage owns its filter state
// for the lifetime of the Pipeline.
//
// A stage that fails or panics falls back to its last known-good value for
// that frame; nothing is retried and the pipeline keeps going.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/teslashibe/go-sightguide/pkg/filter"
	"github.com/teslashibe/go-sightguide/pkg/narrator"
	"github.com/teslashibe/go-sightguide/pkg/navigation"
	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/scheduler"
	"github.com/teslashibe/go-sightguide/pkg/sensorfusion"
	"github.com/teslashibe/go-sightguide/pkg/spatial"
	"github.com/teslashibe/go-sightguide/pkg/tracking"
)

// Stage errors reported in Update.StageErrors.
var (
	ErrStagePanic   = errors.New("pipeline: stage panicked")
	ErrInvalidDepth = errors.New("pipeline: depth estimate is not a positive finite number")
)

// Deps are the external collaborators. Any of them may be nil: a missing
// detector yields no detections, a missing depth estimator keeps the initial
// depth, a missing pitch source means level, and a missing narrator or UI
// is simply not called.
type Deps struct {
	Objects  perception.Detector
	Hazards  perception.Detector
	Depth    perception.DepthEstimator
	Pitch    sensorfusion.PitchSource
	Narrator narrator.Narrator
	UI       UIBridge
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(p *Pipeline) { p.clk = clk }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(p *Pipeline) { p.sessionID = id }
}

// Pipeline is the per-frame guidance orchestrator.
type Pipeline struct {
	cfg       Config
	deps      Deps
	runtime   scheduler.RuntimeConfig
	clk       clock.Clock
	logger    *slog.Logger
	sessionID string

	sched      *scheduler.Scheduler
	runner     *scheduler.Runner
	smoother   *filter.ConfidenceSmoother
	frameDepth *filter.Kalman1D
	tracker    *tracking.Tracker
	engine     *navigation.Engine
	gate       *navigation.Gate

	// Worker-only state.
	frameIndex  uint64
	depth       float64
	lastObjects []perception.Detection
	lastHazards []perception.Detection

	mu      sync.Mutex
	last    Update
	hasLast bool
}

type levelPitch struct{}

func (levelPitch) Pitch() float64 { return 0 }

// New builds a pipeline for the given runtime cadence.
func New(rt scheduler.RuntimeConfig, cfg Config, deps Deps, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		deps:    deps,
		runtime: rt,
		depth:   cfg.InitialDepth,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clk == nil {
		p.clk = clock.New()
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.sessionID == "" {
		p.sessionID = uuid.NewString()
	}
	if p.deps.Pitch == nil {
		p.deps.Pitch = levelPitch{}
	}
	if p.deps.UI == nil {
		p.deps.UI = Discard
	}

	base := p.logger.With("session", p.sessionID)
	p.logger = base.With("component", "pipeline")

	p.sched = scheduler.NewScheduler(rt, cfg.Scheduler, p.clk, base)
	p.runner = scheduler.NewRunner(func(ctx context.Context, f perception.Frame) {
		p.Process(ctx, f)
	}, base)
	p.smoother = filter.NewConfidenceSmoother(cfg.ConfidenceAlpha)
	p.frameDepth = filter.NewKalman1D(filter.FrameDepthProcessNoise, filter.FrameDepthMeasurementNoise)
	p.tracker = tracking.NewTracker(cfg.Tracking, base)
	p.engine = navigation.NewEngine(cfg.Engine)
	p.gate = navigation.NewGate(cfg.Gate)

	p.logger.Info("pipeline created",
		"mode", rt.Mode(),
		"cadence", fmt.Sprintf("%d/%d/%d", rt.Cadence.Objects, rt.Cadence.Hazards, rt.Cadence.Depth),
		"threads", rt.Threads,
	)
	return p, nil
}

// Submit offers a captured frame to the worker. It returns false, having
// released the frame, when a frame is already in flight.
func (p *Pipeline) Submit(frame perception.Frame) bool {
	return p.runner.Submit(frame)
}

// Run processes submitted frames until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.runner.Run(ctx)
}

// Process runs every stage on frame and publishes the result. It does not
// release the frame. Only one goroutine may call Process at a time; Run
// guarantees that for submitted frames.
func (p *Pipeline) Process(ctx context.Context, frame perception.Frame) Update {
	now := p.clk.Now()
	idx := p.frameIndex
	p.frameIndex++
	p.sched.RecordFrame(now)

	var stageErrs []string
	fail := func(stage string, err error) {
		p.logger.Warn("stage failed, using fallback", "stage", stage, "frame", idx, "error", err)
		stageErrs = append(stageErrs, stage+": "+err.Error())
	}

	objects, err := p.detect(ctx, scheduler.StageObjects, idx, p.deps.Objects, frame, p.cfg.ObjectLabels, &p.lastObjects)
	if err != nil {
		fail("objects", err)
	}
	hazards, err := p.detect(ctx, scheduler.StageHazards, idx, p.deps.Hazards, frame, p.cfg.HazardLabels, &p.lastHazards)
	if err != nil {
		fail("hazards", err)
	}
	if err := p.estimateDepth(ctx, idx, frame); err != nil {
		fail("depth", err)
	}

	pitch := p.deps.Pitch.Pitch()
	raw := make([]perception.Detection, 0, len(objects)+len(hazards))
	raw = append(raw, objects...)
	raw = append(raw, hazards...)
	dets := p.prepare(raw, pitch, frame.Width(), frame.Height())

	tracks := p.tracker.Update(dets, now)
	decision := p.engine.Decide(tracks)

	objectID, objectDepth := navigation.NoTrack, 0.0
	if n := tracking.Nearest(tracks); n != nil {
		objectID, objectDepth = n.ID, n.Depth
	}

	narratorOK := p.deps.Narrator != nil && p.deps.Narrator.IsOperational()
	spoken := false
	if narratorOK && p.gate.ShouldSpeak(decision.Command, objectID, objectDepth, now) {
		p.deps.Narrator.SpeakAsync(decision.Command.String())
		spoken = true
	}

	u := Update{
		SessionID:   p.sessionID,
		Frame:       idx,
		At:          now,
		Command:     decision.Command,
		Reason:      decision.Reason,
		Spoken:      spoken,
		FPS:         p.sched.FPS(),
		Mode:        p.runtime.Mode(),
		Cadence:     p.sched.Cadence(),
		Depth:       p.depth,
		Pitch:       pitch,
		Tracks:      tracks,
		Runner:      p.runner.Stats(),
		NarratorOK:  narratorOK,
		StageErrors: stageErrs,
	}

	p.mu.Lock()
	p.last, p.hasLast = u, true
	p.mu.Unlock()

	p.deps.UI.Publish(u)

	p.logger.Debug("frame processed",
		"frame", idx,
		"detections", len(dets),
		"tracks", len(tracks),
		"command", decision.Command,
		"spoken", spoken,
	)
	return u
}

// detect runs det when the scheduler allows it this frame and otherwise
// reuses the stage's previous detections. A failure clears the cache.
func (p *Pipeline) detect(ctx context.Context, stage scheduler.Stage, idx uint64, det perception.Detector,
	frame perception.Frame, labels []string, cache *[]perception.Detection) ([]perception.Detection, error) {
	if det == nil {
		return nil, nil
	}
	if !p.sched.ShouldRun(stage, idx) {
		return *cache, nil
	}

	dets, err := guard(func() ([]perception.Detection, error) {
		return det.Detect(ctx, frame, labels)
	})
	if err != nil {
		*cache = nil
		return nil, err
	}
	*cache = dets
	return dets, nil
}

// estimateDepth refreshes the smoothed frame depth when the depth stage runs.
// On failure the previous depth stays in place.
func (p *Pipeline) estimateDepth(ctx context.Context, idx uint64, frame perception.Frame) error {
	if p.deps.Depth == nil || !p.sched.ShouldRun(scheduler.StageDepth, idx) {
		return nil
	}

	raw, err := guard(func() (float64, error) {
		return p.deps.Depth.Estimate(ctx, frame)
	})
	if err != nil {
		return err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDepth, raw)
	}
	p.depth = p.frameDepth.Update(raw)
	return nil
}

// prepare smooths confidences, drops weak detections, corrects depth for
// pitch, projects centers and assigns grid cells.
func (p *Pipeline) prepare(raw []perception.Detection, pitch float64, width, height int) []perception.Detection {
	proj := spatial.NewProjector(height)
	zones := spatial.NewZoneMapper(width, height)

	out := make([]perception.Detection, 0, len(raw))
	for _, d := range raw {
		d.Confidence = p.smoother.Smooth(d.Label, d.Confidence)
		if d.Confidence < p.cfg.MinConfidence || !finitePoint(d.CenterX, d.CenterY) {
			continue
		}

		depth := d.Depth
		if !(depth > 0) {
			depth = p.depth
		}
		d.Depth = sensorfusion.CorrectDepth(depth, pitch)

		d.CenterX, d.CenterY = proj.Project(d.CenterX, d.CenterY, pitch)
		if !finitePoint(d.CenterX, d.CenterY) {
			continue
		}
		zones.Apply(&d)
		out = append(out, d)
	}
	return out
}

func finitePoint(x, y float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && !math.IsNaN(y) && !math.IsInf(y, 0)
}

// guard calls fn, converting a panic into ErrStagePanic.
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()
	return fn()
}

// Last returns the most recent update.
func (p *Pipeline) Last() (Update, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Active returns every live track.
func (p *Pipeline) Active() []tracking.TrackedObject {
	return p.tracker.Active()
}

// SessionID returns the id stamped on every update.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Runtime returns the runtime configuration the pipeline was built with.
func (p *Pipeline) Runtime() scheduler.RuntimeConfig {
	return p.runtime
}

// Stats returns the frame admission counters.
func (p *Pipeline) Stats() scheduler.RunnerStats {
	return p.runner.Stats()
}
