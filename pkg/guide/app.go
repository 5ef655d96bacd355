package guide

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-sightguide/pkg/camera"
	"github.com/teslashibe/go-sightguide/pkg/narrator"
	"github.com/teslashibe/go-sightguide/pkg/perception/detection"
	"github.com/teslashibe/go-sightguide/pkg/pipeline"
	"github.com/teslashibe/go-sightguide/pkg/scheduler"
	"github.com/teslashibe/go-sightguide/pkg/sensorfusion"
	"github.com/teslashibe/go-sightguide/pkg/web"
)

// App is the sight guide application. It owns every long-running component
// and their lifecycle.
type App struct {
	config Config
	logger *slog.Logger

	runtime scheduler.RuntimeConfig

	// Perception
	objects *detection.YOLODetector
	hazards *detection.YOLODetector
	depth   *detection.MiDaSEstimator

	// Sensing
	capture *camera.Capture
	device  *gocv.VideoCapture
	sensor  sensorfusion.MotionSensor
	pitch   *sensorfusion.PitchEstimator

	// Output
	speaker  *narrator.Speaker
	web      *web.Server
	pipeline *pipeline.Pipeline
}

// New acquires every resource the application needs: models, camera and
// speech provider. Any acquisition failure is returned after releasing what
// was already acquired.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	a = &App{
		config:  cfg,
		logger:  logger.With("component", "guide"),
		runtime: scheduler.ProbeRuntime(scheduler.LocalCapabilities(cfg.GPU)),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
			a = nil
		}
	}()

	if err := a.initModels(logger); err != nil {
		return a, err
	}
	if err := a.initCamera(logger); err != nil {
		return a, err
	}
	if err := a.initSpeech(ctx, logger); err != nil {
		return a, err
	}

	a.web = web.NewServer(cfg.Web, logger)
	a.pitch = sensorfusion.NewPitchEstimator(logger)
	switch cfg.Motion {
	case MotionWeb:
		a.sensor = a.web.Motion()
	default:
		a.sensor = sensorfusion.StaticSensor{Sample: sensorfusion.Level}
	}

	deps := pipeline.Deps{
		Objects: a.objects,
		Pitch:   a.pitch,
		UI:      a.web,
	}
	// Optional collaborators stay nil interfaces when absent.
	if a.hazards != nil {
		deps.Hazards = a.hazards
	}
	if a.depth != nil {
		deps.Depth = a.depth
	}
	if a.speaker != nil {
		deps.Narrator = a.speaker
		a.web.SetNarrator(a.speaker)
	}

	a.pipeline, err = pipeline.New(a.runtime, cfg.Pipeline, deps, pipeline.WithLogger(logger))
	if err != nil {
		return a, err
	}

	a.logger.Info("sight guide ready",
		"session", a.pipeline.SessionID(),
		"mode", a.runtime.Mode(),
		"camera", fmt.Sprintf("%dx%d", cfg.Camera.Width, cfg.Camera.Height),
		"tts", cfg.TTS,
		"motion", cfg.Motion,
	)
	return a, nil
}

func (a *App) initModels(logger *slog.Logger) error {
	var err error
	if a.objects, err = detection.NewYOLO(a.config.objectConfig(), logger); err != nil {
		return fmt.Errorf("object detector: %w", err)
	}
	if a.config.HazardModel != "" {
		if a.hazards, err = detection.NewYOLO(a.config.hazardConfig(), logger); err != nil {
			return fmt.Errorf("hazard detector: %w", err)
		}
	}
	if a.config.DepthModel != "" {
		if a.depth, err = detection.NewMiDaS(a.config.depthConfig(), logger); err != nil {
			return fmt.Errorf("depth estimator: %w", err)
		}
	}
	return nil
}

func (a *App) initCamera(logger *slog.Logger) error {
	var err error
	if a.capture, err = camera.NewCapture(a.config.Camera, logger); err != nil {
		return err
	}
	if a.device, err = a.capture.Open(); err != nil {
		return err
	}
	return nil
}

func (a *App) initSpeech(ctx context.Context, logger *slog.Logger) error {
	provider, err := newProvider(ctx, a.config, logger)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	if provider == nil {
		return nil
	}
	player, err := newPlayer(a.config.AudioBackend, logger)
	if err != nil {
		provider.Close()
		return err
	}
	a.speaker = narrator.NewSpeaker(provider, player, a.config.Narrator, logger)
	return nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. On the way out capture stops first, then the motion sensor,
// then the worker, narrator and dashboard.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	captureCtx, stopCapture := context.WithCancel(context.Background())
	sensorCtx, stopSensor := context.WithCancel(context.Background())
	workCtx, stopWork := context.WithCancel(context.Background())
	defer stopCapture()
	defer stopSensor()
	defer stopWork()

	captureDone := make(chan struct{})
	sensorDone := make(chan struct{})

	device := a.device
	a.device = nil // owned by the capture loop from here on
	g.Go(func() error {
		defer close(captureDone)
		return a.capture.Run(captureCtx, device, a.pipeline)
	})
	g.Go(func() error {
		defer close(sensorDone)
		return a.pitch.Run(sensorCtx, a.sensor)
	})
	g.Go(func() error {
		return a.pipeline.Run(workCtx)
	})
	g.Go(func() error {
		return a.web.Start(workCtx)
	})
	if a.speaker != nil {
		g.Go(func() error {
			return a.speaker.Run(workCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		stopCapture()
		<-captureDone
		stopSensor()
		<-sensorDone
		stopWork()
		return nil
	})

	err := g.Wait()
	a.logger.Info("stopped",
		"capture", a.capture.Stats(),
		"runner", a.pipeline.Stats(),
		"pitch_samples", a.pitch.SampleCount(),
	)
	return err
}

// Pipeline returns the guidance pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Runtime returns the inference profile chosen at startup.
func (a *App) Runtime() scheduler.RuntimeConfig {
	return a.runtime
}

// Close releases the camera, the models and the narrator, in that order.
// It is safe to call after a partial New.
func (a *App) Close() error {
	var err error
	if a.device != nil {
		err = multierr.Append(err, a.device.Close())
		a.device = nil
	}
	if a.objects != nil {
		err = multierr.Append(err, a.objects.Close())
	}
	if a.hazards != nil {
		err = multierr.Append(err, a.hazards.Close())
	}
	if a.depth != nil {
		err = multierr.Append(err, a.depth.Close())
	}
	if a.speaker != nil {
		err = multierr.Append(err, a.speaker.Close())
	}
	return err
}
