// Package tracking assigns stable identities to per-frame detections and
// smooths their position and depth over time.
package tracking

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-sightguide/pkg/filter"
	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// track is one arena slot. A free slot keeps its filters for reuse.
type track struct {
	obj     TrackedObject
	x, y, d *filter.Kalman1D
	live    bool
	matched uint64 // frame sequence of the last match
}

// Tracker associates detections with tracks by label and nearest center.
//
// Tracks live in a slot arena; evicted slots go on a free list and their
// filters are reset and reused. Ids come from a monotonic counter starting at 1
// and are never reused.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	logger *slog.Logger

	slots  []track
	free   []int
	live   int
	nextID uint64
	frame  uint64

	created uint64
	evicted uint64
}

// Stats summarizes tracker activity.
type Stats struct {
	Live    int    `json:"live"`
	Created uint64 `json:"created"`
	Evicted uint64 `json:"evicted"`
}

// NewTracker creates a tracker. An invalid config falls back to DefaultConfig.
func NewTracker(cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "tracker")
	if err := cfg.Validate(); err != nil {
		logger.Warn("invalid tracking config, using defaults", "error", err)
		cfg = DefaultConfig()
	}
	return &Tracker{cfg: cfg, logger: logger}
}

// Update folds one frame of detections into the tracks and evicts stale ones.
// It returns the tracks updated this frame, nearest first (ties by id).
func (t *Tracker) Update(dets []perception.Detection, now time.Time) []TrackedObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.frame++
	out := make([]TrackedObject, 0, len(dets))

	for _, det := range dets {
		if !finite(det.CenterX) || !finite(det.CenterY) {
			continue
		}
		idx := t.match(det)
		if idx < 0 {
			idx = t.alloc()
		}
		s := &t.slots[idx]
		s.matched = t.frame
		s.obj.Label = det.Label
		s.obj.CenterX = s.x.Update(det.CenterX)
		s.obj.CenterY = s.y.Update(det.CenterY)
		s.obj.Depth = s.d.Update(det.Depth)
		s.obj.Zone = det.Zone
		s.obj.Row = det.Row
		s.obj.Col = det.Col
		s.obj.Confidence = det.Confidence
		s.obj.LastSeen = now
		out = append(out, s.obj)
	}

	t.evictStale(now)

	SortByDepth(out)
	return out
}

// match returns the slot of the nearest same-label track not yet matched this
// frame and within the match distance, or -1.
func (t *Tracker) match(det perception.Detection) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live || s.matched == t.frame || s.obj.Label != det.Label {
			continue
		}
		dist := math.Hypot(s.obj.CenterX-det.CenterX, s.obj.CenterY-det.CenterY)
		if math.IsNaN(dist) {
			continue
		}
		if best < 0 || dist < bestDist || (dist == bestDist && s.obj.ID < t.slots[best].obj.ID) {
			best, bestDist = i, dist
		}
	}
	if best < 0 || bestDist >= t.cfg.MatchDistancePx {
		return -1
	}
	return best
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// alloc takes a slot from the free list, or grows the arena, and gives it a new id.
func (t *Tracker) alloc() int {
	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[idx]
		s.x.Reset()
		s.y.Reset()
		s.d.Reset()
	} else {
		t.slots = append(t.slots, track{
			x: filter.NewKalman1D(t.cfg.PositionQ, t.cfg.PositionR),
			y: filter.NewKalman1D(t.cfg.PositionQ, t.cfg.PositionR),
			d: filter.NewKalman1D(t.cfg.DepthQ, t.cfg.DepthR),
		})
		idx = len(t.slots) - 1
	}

	t.nextID++
	t.created++
	t.live++
	s := &t.slots[idx]
	s.live = true
	s.obj = TrackedObject{ID: t.nextID}

	t.logger.Debug("track created", "id", t.nextID, "slot", idx)
	return idx
}

func (t *Tracker) evictStale(now time.Time) {
	for i := range t.slots {
		s := &t.slots[i]
		if !s.live || now.Sub(s.obj.LastSeen) <= t.cfg.StaleAfter {
			continue
		}
		t.logger.Debug("track evicted", "id", s.obj.ID, "label", s.obj.Label)
		s.live = false
		t.free = append(t.free, i)
		t.live--
		t.evicted++
	}
}

// Active returns a copy of every live track, nearest first.
func (t *Tracker) Active() []TrackedObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TrackedObject, 0, t.live)
	for i := range t.slots {
		if t.slots[i].live {
			out = append(out, t.slots[i].obj)
		}
	}
	SortByDepth(out)
	return out
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Stats returns activity counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{Live: t.live, Created: t.created, Evicted: t.evicted}
}

// Reset drops every track. The id counter keeps counting so ids stay unique.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = nil
	t.free = nil
	t.live = 0
}
