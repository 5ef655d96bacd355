package perception

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// MockDetector implements Detector for testing.
type MockDetector struct {
	// DetectFunc is called when Detect is invoked.
	// If nil, returns no detections.
	DetectFunc func(ctx context.Context, frame Frame, labels []string) ([]Detection, error)

	mu     sync.Mutex
	calls  int
	labels [][]string
}

// Detect calls DetectFunc and records the call.
func (m *MockDetector) Detect(ctx context.Context, frame Frame, labels []string) ([]Detection, error) {
	m.mu.Lock()
	m.calls++
	m.labels = append(m.labels, append([]string(nil), labels...))
	fn := m.DetectFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, frame, labels)
}

// CallCount returns how many times Detect was called.
func (m *MockDetector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastLabels returns the label set passed on the most recent call.
func (m *MockDetector) LastLabels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.labels) == 0 {
		return nil
	}
	return m.labels[len(m.labels)-1]
}

// StaticDetector returns a detector that always yields dets.
func StaticDetector(dets ...Detection) *MockDetector {
	return &MockDetector{
		DetectFunc: func(context.Context, Frame, []string) ([]Detection, error) {
			out := make([]Detection, len(dets))
			copy(out, dets)
			return out, nil
		},
	}
}

// MockDepth implements DepthEstimator for testing.
type MockDepth struct {
	// EstimateFunc is called when Estimate is invoked.
	// If nil, returns 2.0.
	EstimateFunc func(ctx context.Context, frame Frame) (float64, error)

	calls atomic.Int64
}

// Estimate calls EstimateFunc and records the call.
func (m *MockDepth) Estimate(ctx context.Context, frame Frame) (float64, error) {
	m.calls.Add(1)
	if m.EstimateFunc == nil {
		return 2.0, nil
	}
	return m.EstimateFunc(ctx, frame)
}

// CallCount returns how many times Estimate was called.
func (m *MockDepth) CallCount() int {
	return int(m.calls.Load())
}

// StaticFrame is a pixel-less Frame of a fixed size that counts releases.
type StaticFrame struct {
	W, H     int
	released atomic.Int32
}

// NewStaticFrame creates a frame of the given size.
func NewStaticFrame(w, h int) *StaticFrame {
	return &StaticFrame{W: w, H: h}
}

func (f *StaticFrame) Width() int  { return f.W }
func (f *StaticFrame) Height() int { return f.H }
func (f *StaticFrame) Release()    { f.released.Add(1) }

// Releases returns how many times Release was called.
func (f *StaticFrame) Releases() int {
	return int(f.released.Load())
}

var (
	_ Detector       = (*MockDetector)(nil)
	_ DepthEstimator = (*MockDepth)(nil)
	_ Frame          = (*StaticFrame)(nil)
)
