package narrator

import "sync"

// Recorder is a Narrator that records phrases instead of speaking them.
type Recorder struct {
	mu          sync.Mutex
	texts       []string
	resets      int
	operational bool
}

// NewRecorder returns an operational recorder.
func NewRecorder() *Recorder {
	return &Recorder{operational: true}
}

// SpeakAsync records text when operational.
func (r *Recorder) SpeakAsync(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operational {
		r.texts = append(r.texts, text)
	}
}

// IsOperational implements Narrator.
func (r *Recorder) IsOperational() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operational
}

// SetOperational flips the operational flag.
func (r *Recorder) SetOperational(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operational = ok
}

// Reset marks the recorder operational again.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
	r.operational = true
}

// Texts returns recorded phrases in order.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}

// Resets returns how many times Reset was called.
func (r *Recorder) Resets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

var _ Narrator = (*Recorder)(nil)
