package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// YOLODetector runs a YOLOv8 ONNX model and implements perception.Detector.
type YOLODetector struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex
	inputSize image.Point
	logger    *slog.Logger
}

// NewYOLO loads the model described by cfg.
func NewYOLO(cfg YOLOConfig, logger *slog.Logger) (*YOLODetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid yolo config: %w", err)
	}
	net, err := loadNet(cfg.ModelPath, cfg.UseCUDA)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &YOLODetector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		logger:    logger.With("component", "detection.yolo", "model", cfg.ModelPath),
	}, nil
}

// Detect implements perception.Detector. Centers are in frame pixels.
func (d *YOLODetector) Detect(ctx context.Context, frame perception.Frame, labels []string) ([]perception.Detection, error) {
	img, err := matOf(frame)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// YOLOv8 output is [1, 4+classes, anchors].
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected yolo output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read yolo output: %w", err)
	}

	sx := float32(img.Cols()) / float32(d.config.InputWidth)
	sy := float32(img.Rows()) / float32(d.config.InputHeight)
	cands := decodeYOLOv8(data, dims[1], dims[2], d.config.ConfidenceThresh, sx, sy)
	if len(cands) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.box
		scores[i] = c.score
	}
	indices := gocv.NMSBoxes(boxes, scores, d.config.ConfidenceThresh, d.config.NMSThresh)

	dets := make([]perception.Detection, 0, len(indices))
	for _, idx := range indices {
		c := cands[idx]
		if c.class >= len(d.config.Classes) {
			continue
		}
		dets = append(dets, c.toDetection(d.config.Classes[c.class]))
	}
	dets = perception.FilterLabels(dets, labels)

	d.logger.Debug("yolo detections", "candidates", len(cands), "kept", len(dets))
	return dets, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

type candidate struct {
	box   image.Rectangle
	score float32
	class int
}

func (c candidate) toDetection(label string) perception.Detection {
	return perception.Detection{
		Label:      label,
		Confidence: float64(c.score),
		CenterX:    float64(c.box.Min.X+c.box.Max.X) / 2,
		CenterY:    float64(c.box.Min.Y+c.box.Max.Y) / 2,
	}
}

// decodeYOLOv8 reads a channel-major [channels, anchors] tensor where the
// first four channels are cx, cy, w, h in model input pixels and the rest are
// class scores. Boxes are scaled by sx, sy into frame pixels.
func decodeYOLOv8(data []float32, channels, anchors int, thresh, sx, sy float32) []candidate {
	if channels <= 4 || anchors <= 0 || len(data) < channels*anchors {
		return nil
	}

	var out []candidate
	for i := 0; i < anchors; i++ {
		best := float32(0)
		class := 0
		for c := 4; c < channels; c++ {
			if s := data[c*anchors+i]; s > best {
				best = s
				class = c - 4
			}
		}
		if best < thresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		out = append(out, candidate{
			box: image.Rect(
				int((cx-w/2)*sx), int((cy-h/2)*sy),
				int((cx+w/2)*sx), int((cy+h/2)*sy),
			),
			score: best,
			class: class,
		})
	}
	return out
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

var _ perception.Detector = (*YOLODetector)(nil)
