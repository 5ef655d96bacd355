// Package perception defines the contracts between the guidance core and the
// vision backends: frames, detections, and the detector and depth interfaces.
//
// The core never imports a concrete backend. Model-backed implementations live
// in pkg/perception/detection; tests use the mocks in this package.
package perception

import (
	"context"
	"strings"
)

// Zone is the horizontal third of the frame an object occupies.
type Zone string

const (
	ZoneLeft   Zone = "LEFT"
	ZoneCenter Zone = "CENTER"
	ZoneRight  Zone = "RIGHT"
)

// String returns the zone name.
func (z Zone) String() string { return string(z) }

// Detection is a single object found in one frame.
// Detections are produced per detector call and consumed within the frame.
type Detection struct {
	Label      string
	Confidence float64 // 0-1

	// Center in pixel coordinates of the source frame
	CenterX float64
	CenterY float64

	// Depth in meters. Zero means the detector has no per-object depth and the
	// frame depth should be used instead.
	Depth float64

	Zone Zone
	Row  int // 0..2, top to bottom
	Col  int // 0..2, left to right
}

// Frame is one captured image. The pipeline only needs its size; backends type
// assert to their concrete frame to reach pixels. Release must be called exactly
// once when the frame is no longer needed.
type Frame interface {
	Width() int
	Height() int
	Release()
}

// Detector finds labelled objects in a frame.
type Detector interface {
	// Detect returns detections whose label is in labels. An empty labels
	// slice means every label the backend knows.
	Detect(ctx context.Context, frame Frame, labels []string) ([]Detection, error)
}

// DepthEstimator produces a single scene depth in meters for a frame.
type DepthEstimator interface {
	Estimate(ctx context.Context, frame Frame) (float64, error)
}

// Label sets requested from the two detectors.
var (
	ObjectLabels = []string{"person", "chair", "wall", "pole", "door", "car", "bicycle"}
	HazardLabels = []string{"staircase", "pothole", "ramp"}
)

// IsHazardLabel reports whether label names a ground hazard.
func IsHazardLabel(label string) bool {
	for _, h := range HazardLabels {
		if strings.EqualFold(h, label) {
			return true
		}
	}
	return false
}

// FilterLabels keeps the detections whose label is in labels (case-insensitive).
// An empty labels slice keeps everything.
func FilterLabels(dets []Detection, labels []string) []Detection {
	if len(labels) == 0 {
		return dets
	}
	out := dets[:0:0]
	for _, d := range dets {
		for _, l := range labels {
			if strings.EqualFold(d.Label, l) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
