// Package spatial places detections on the walking plane: a pitch-compensated
// projection of image coordinates and a 3×3 grid of zones over the frame.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Projection limits.
const (
	PitchScaleGain = 0.4
	MinScale       = 0.8
	MaxScale       = 1.3

	// Epsilon is the smallest magnitude allowed for the homogeneous divisor.
	Epsilon = 1e-6
)

// Projector applies the pitch-dependent ground-plane transform for frames of
// a given height. The zero value scales about row 0.
type Projector struct {
	centerY float64
}

// NewProjector creates a projector for frames frameHeight pixels tall.
// Vertical scaling is about the frame's middle row so the horizon stays put.
func NewProjector(frameHeight int) Projector {
	return Projector{centerY: float64(frameHeight) / 2}
}

// VerticalScale returns clamp(1 + 0.4·|pitch|, 0.8, 1.3).
func VerticalScale(pitch float64) float64 {
	s := 1 + PitchScaleGain*math.Abs(pitch)
	return math.Max(MinScale, math.Min(MaxScale, s))
}

// Matrix returns the 3×3 homogeneous transform for pitch.
func (p Projector) Matrix(pitch float64) *mat.Dense {
	s := VerticalScale(pitch)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, s, p.centerY * (1 - s),
		0, 0, 1,
	})
}

// Project maps an image point (x, y) through the transform for pitch.
func (p Projector) Project(x, y, pitch float64) (float64, float64) {
	if math.IsNaN(pitch) || math.IsInf(pitch, 0) {
		pitch = 0
	}

	var out mat.VecDense
	out.MulVec(p.Matrix(pitch), mat.NewVecDense(3, []float64{x, y, 1}))

	w := out.AtVec(2)
	if math.Abs(w) < Epsilon {
		w = math.Copysign(Epsilon, w)
	}
	return out.AtVec(0) / w, out.AtVec(1) / w
}
