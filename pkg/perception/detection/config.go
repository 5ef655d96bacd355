package detection

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// YOLOConfig holds YOLOv8 detector configuration.
type YOLOConfig struct {
	ModelPath        string
	Classes          []string // class names in model output order
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	UseCUDA          bool
}

// DefaultObjectConfig returns defaults for a COCO-trained YOLOv8n.
func DefaultObjectConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n.onnx",
		Classes:          COCOClasses,
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// DefaultHazardConfig returns defaults for the ground hazard model.
func DefaultHazardConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/hazards.onnx",
		Classes:          perception.HazardLabels,
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// Validate checks the configuration.
func (c YOLOConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if len(c.Classes) == 0 {
		return errors.New("class names are required")
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("input size must be positive, got %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.ConfidenceThresh < 0 || c.ConfidenceThresh > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThresh)
	}
	return nil
}

// DepthConfig holds MiDaS depth estimator configuration.
type DepthConfig struct {
	ModelPath string
	InputSize int // square input, 256 for MiDaS small
	UseCUDA   bool

	// Scale converts MiDaS relative inverse depth to meters:
	// meters = Scale / disparity. Calibrate per camera.
	Scale float64

	MaxDepth float64
}

// DefaultDepthConfig returns defaults for MiDaS v2.1 small.
func DefaultDepthConfig() DepthConfig {
	return DepthConfig{
		ModelPath: "models/midas_v21_small_256.onnx",
		InputSize: 256,
		Scale:     600,
		MaxDepth:  10,
	}
}

// Validate checks the configuration.
func (c DepthConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.Scale <= 0 || c.MaxDepth <= 0 {
		return errors.New("scale and max depth must be positive")
	}
	return nil
}

// loadNet reads an ONNX model and selects the compute backend.
func loadNet(path string, cuda bool) (gocv.Net, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load model from %s", path)
	}

	if cuda {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}
	return net, nil
}
