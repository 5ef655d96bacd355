package navigation

import (
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-sightguide/internal/config"
)

// NoTrack is the object id used when a command is not about any track.
const NoTrack uint64 = 0

// GateConfig holds the announcement debounce thresholds.
type GateConfig struct {
	MinGap     time.Duration // never speak twice within this window
	DepthDelta float64       // depth change (meters) that justifies repeating a command
}

// DefaultGateConfig returns the standard debounce thresholds.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MinGap:     1200 * time.Millisecond,
		DepthDelta: 0.35,
	}
}

// WithTuning applies the gate fields of a tuning file.
func (c GateConfig) WithTuning(t *config.Tuning) GateConfig {
	if t == nil {
		return c
	}
	c.MinGap = t.GetSpeakGap(c.MinGap)
	c.DepthDelta = t.GetDepthDeltaM(c.DepthDelta)
	return c
}

// Memory is what the gate remembers about the last spoken announcement.
type Memory struct {
	Command  Command   `json:"command"`
	ObjectID uint64    `json:"objectId"`
	Depth    float64   `json:"depth"`
	SpokenAt time.Time `json:"spokenAt"`
}

// Gate debounces announcements. Memory changes only when ShouldSpeak
// returns true.
type Gate struct {
	mu   sync.Mutex
	cfg  GateConfig
	last Memory
	said bool
}

// NewGate creates a gate that lets the first announcement through.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// ShouldSpeak reports whether command should be voiced at now.
// Within MinGap of the last announcement it is always false. After that it is
// true when the command, the object id, or the depth (by more than DepthDelta)
// has changed.
func (g *Gate) ShouldSpeak(command Command, objectID uint64, depth float64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.said && now.Sub(g.last.SpokenAt) < g.cfg.MinGap {
		return false
	}

	changed := !g.said ||
		command != g.last.Command ||
		objectID != g.last.ObjectID ||
		math.Abs(depth-g.last.Depth) > g.cfg.DepthDelta
	if !changed {
		return false
	}

	g.last = Memory{Command: command, ObjectID: objectID, Depth: depth, SpokenAt: now}
	g.said = true
	return true
}

// Snapshot returns the last spoken announcement, and false if nothing has
// been spoken yet.
func (g *Gate) Snapshot() (Memory, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.said
}

// Reset forgets the last announcement.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = Memory{}
	g.said = false
}
