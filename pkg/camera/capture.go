package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.uber.org/atomic"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/perception/detection"
)

// ErrOpen is returned when the capture device cannot be opened.
var ErrOpen = errors.New("camera: cannot open device")

// Sink receives captured frames. Submit takes ownership of the frame and
// reports whether it was admitted.
type Sink interface {
	Submit(frame perception.Frame) bool
}

// Stats summarizes capture activity.
type Stats struct {
	Captured   uint64 `json:"captured"`
	Rejected   uint64 `json:"rejected"` // frames the sink dropped
	ReadErrors uint64 `json:"read_errors"`
	Reopens    uint64 `json:"reopens"`
}

// Capture reads frames from an OpenCV VideoCapture.
type Capture struct {
	config Config
	logger *slog.Logger

	captured   atomic.Uint64
	rejected   atomic.Uint64
	readErrors atomic.Uint64
	reopens    atomic.Uint64
}

// NewCapture creates a capture for cfg.
func NewCapture(cfg Config, logger *slog.Logger) (*Capture, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid camera config: %s", strings.Join(errs, "; "))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Capture{
		config: cfg,
		logger: logger.With("component", "camera", "device", cfg.Device),
	}, nil
}

// Open opens the device and applies the requested format.
func (c *Capture) Open() (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(deviceID(c.config.Device))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, c.config.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %s", ErrOpen, c.config.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	if c.config.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(c.config.Framerate))
	}
	// Keep only the newest frame in the driver queue.
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	c.logger.Info("camera opened",
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS),
	)
	return vc, nil
}

// Run captures frames into sink until ctx is cancelled. vc is the device
// returned by Open; after MaxReadFailures consecutive failed reads it is
// reopened. Run closes the device it holds on return.
func (c *Capture) Run(ctx context.Context, vc *gocv.VideoCapture, sink Sink) error {
	defer func() {
		if vc != nil {
			vc.Close()
		}
	}()

	failures := 0
	for ctx.Err() == nil {
		if vc == nil {
			if !sleepCtx(ctx, c.config.ReopenDelay) {
				break
			}
			var err error
			if vc, err = c.Open(); err != nil {
				c.logger.Warn("reopen failed", "error", err)
				continue
			}
			c.reopens.Inc()
			failures = 0
		}

		mat := gocv.NewMat()
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			c.readErrors.Inc()
			failures++
			if failures >= c.config.MaxReadFailures {
				c.logger.Warn("camera stopped delivering frames, reopening", "failures", failures)
				vc.Close()
				vc = nil
			}
			continue
		}
		failures = 0

		if c.config.Mirror {
			gocv.Flip(mat, &mat, 1)
		}

		c.captured.Inc()
		if !sink.Submit(detection.NewMatFrame(mat)) {
			c.rejected.Inc()
		}
	}

	c.logger.Info("capture stopped", "captured", c.captured.Load(), "rejected", c.rejected.Load())
	return nil
}

// Stats returns capture counters.
func (c *Capture) Stats() Stats {
	return Stats{
		Captured:   c.captured.Load(),
		Rejected:   c.rejected.Load(),
		ReadErrors: c.readErrors.Load(),
		Reopens:    c.reopens.Load(),
	}
}

// deviceID turns a numeric device string into a camera index for OpenCV.
func deviceID(device string) any {
	if id, err := strconv.Atoi(device); err == nil {
		return id
	}
	return device
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
