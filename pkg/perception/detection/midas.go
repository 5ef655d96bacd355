package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// ErrNoDepth is returned when the depth map has no usable center region.
var ErrNoDepth = errors.New("detection: depth map has no valid disparity")

// MiDaSEstimator runs a MiDaS ONNX model and reports the scene depth
// straight ahead. It implements perception.DepthEstimator.
type MiDaSEstimator struct {
	net    gocv.Net
	config DepthConfig
	mu     sync.Mutex
	logger *slog.Logger
}

// NewMiDaS loads the depth model described by cfg.
func NewMiDaS(cfg DepthConfig, logger *slog.Logger) (*MiDaSEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid depth config: %w", err)
	}
	net, err := loadNet(cfg.ModelPath, cfg.UseCUDA)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MiDaSEstimator{
		net:    net,
		config: cfg,
		logger: logger.With("component", "detection.midas"),
	}, nil
}

// Estimate implements perception.DepthEstimator.
func (m *MiDaSEstimator) Estimate(ctx context.Context, frame perception.Frame) (float64, error) {
	img, err := matOf(frame)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	size := m.config.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(123.675, 116.28, 103.53, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return 0, fmt.Errorf("read depth output: %w", err)
	}
	if len(data) < size*size {
		return 0, fmt.Errorf("unexpected depth output size %d", len(data))
	}

	disparity, ok := centerMedian(data, size, size)
	if !ok {
		return 0, ErrNoDepth
	}
	meters := DisparityToMeters(float64(disparity), m.config.Scale, m.config.MaxDepth)

	m.logger.Debug("depth estimate", "disparity", disparity, "meters", meters)
	return meters, nil
}

// Close releases the network.
func (m *MiDaSEstimator) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// centerMedian returns the median of positive finite values in the middle
// third of a row-major w*h map.
func centerMedian(data []float32, w, h int) (float32, bool) {
	x0, x1 := w/3, w-w/3
	y0, y1 := h/3, h-h/3

	vals := make([]float32, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := data[y*w+x]
			if v > 0 && !math.IsInf(float64(v), 0) && !math.IsNaN(float64(v)) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals[len(vals)/2], true
}

// DisparityToMeters converts relative inverse depth to meters, capped at max.
func DisparityToMeters(disparity, scale, maxDepth float64) float64 {
	if disparity <= 0 {
		return maxDepth
	}
	return math.Min(scale/disparity, maxDepth)
}

var _ perception.DepthEstimator = (*MiDaSEstimator)(nil)
