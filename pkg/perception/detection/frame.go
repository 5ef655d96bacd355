// Package detection runs ONNX vision models through OpenCV's DNN module:
// YOLOv8 object and hazard detectors plus a MiDaS depth estimator.
package detection

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// ErrUnsupportedFrame is returned for frames that do not carry a gocv.Mat.
var ErrUnsupportedFrame = errors.New("detection: frame has no image data")

// MatFrame is a perception.Frame backed by a BGR gocv.Mat.
type MatFrame struct {
	mat gocv.Mat
}

// NewMatFrame takes ownership of mat; Release closes it.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Mat returns the underlying image. It is only valid until Release.
func (f *MatFrame) Mat() gocv.Mat { return f.mat }

// Width implements perception.Frame.
func (f *MatFrame) Width() int { return f.mat.Cols() }

// Height implements perception.Frame.
func (f *MatFrame) Height() int { return f.mat.Rows() }

// Release implements perception.Frame.
func (f *MatFrame) Release() {
	f.mat.Close()
}

// matOf extracts a non-empty image from frame.
func matOf(frame perception.Frame) (gocv.Mat, error) {
	mf, ok := frame.(*MatFrame)
	if !ok || mf.mat.Empty() {
		return gocv.Mat{}, ErrUnsupportedFrame
	}
	return mf.mat, nil
}

var _ perception.Frame = (*MatFrame)(nil)
