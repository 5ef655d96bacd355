package filter

import "sync"

// DefaultConfidenceAlpha weights the newest detector confidence.
const DefaultConfidenceAlpha = 0.35

// ConfidenceSmoother stabilizes detector confidence per label with an EMA:
// smoothed = alpha*raw + (1-alpha)*previous. State persists across frames.
type ConfidenceSmoother struct {
	mu     sync.Mutex
	alpha  float64
	memory map[string]float64
}

// NewConfidenceSmoother creates a smoother. Alpha outside (0, 1] falls back
// to DefaultConfidenceAlpha.
func NewConfidenceSmoother(alpha float64) *ConfidenceSmoother {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultConfidenceAlpha
	}
	return &ConfidenceSmoother{
		alpha:  alpha,
		memory: make(map[string]float64),
	}
}

// Smooth folds raw into the label's running value and returns it.
// The first observation of a label is returned unchanged.
func (s *ConfidenceSmoother) Smooth(label string, raw float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.memory[label]
	if !ok {
		prev = raw
	}
	smoothed := s.alpha*raw + (1-s.alpha)*prev
	s.memory[label] = smoothed
	return smoothed
}

// Value returns the current smoothed confidence for label.
func (s *ConfidenceSmoother) Value(label string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memory[label]
	return v, ok
}

// Alpha returns the configured weight.
func (s *ConfidenceSmoother) Alpha() float64 {
	return s.alpha
}

// Reset forgets every label.
func (s *ConfidenceSmoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = make(map[string]float64)
}
