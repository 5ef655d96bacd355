package pipeline

import (
	"sync"
	"time"

	"github.com/teslashibe/go-sightguide/pkg/navigation"
	"github.com/teslashibe/go-sightguide/pkg/scheduler"
	"github.com/teslashibe/go-sightguide/pkg/tracking"
)

// Update is the per-frame result handed to the UI.
type Update struct {
	SessionID string             `json:"sessionId"`
	Frame     uint64             `json:"frame"`
	At        time.Time          `json:"at"`
	Command   navigation.Command `json:"command"`
	Reason    string             `json:"reason"`
	Spoken    bool               `json:"spoken"`

	FPS     float64           `json:"fps"`
	Mode    string            `json:"mode"`
	Cadence scheduler.Cadence `json:"cadence"`

	Depth float64 `json:"depth"` // smoothed frame depth before pitch correction
	Pitch float64 `json:"pitch"` // radians

	Tracks []tracking.TrackedObject `json:"tracks"`

	Runner      scheduler.RunnerStats `json:"runner"`
	NarratorOK  bool                  `json:"narratorOk"`
	StageErrors []string              `json:"stageErrors,omitempty"`
}

// UIBridge receives every Update. Publish must not block the pipeline.
type UIBridge interface {
	Publish(u Update)
}

// BridgeFunc adapts a function to UIBridge.
type BridgeFunc func(u Update)

// Publish implements UIBridge.
func (f BridgeFunc) Publish(u Update) { f(u) }

// Discard is a UIBridge that ignores updates.
var Discard UIBridge = BridgeFunc(func(Update) {})

// Collector is a UIBridge that keeps every update, for tests and tools.
type Collector struct {
	mu      sync.Mutex
	updates []Update
}

// Publish implements UIBridge.
func (c *Collector) Publish(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

// Updates returns a copy of the collected updates.
func (c *Collector) Updates() []Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Update, len(c.updates))
	copy(out, c.updates)
	return out
}

// Last returns the most recent update.
func (c *Collector) Last() (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) == 0 {
		return Update{}, false
	}
	return c.updates[len(c.updates)-1], true
}
