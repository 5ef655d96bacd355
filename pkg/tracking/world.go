package tracking

import (
	"sort"
	"time"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

// TrackedObject is a detection with a stable identity and smoothed position.
// Callers always receive copies; the tracker owns the live state.
type TrackedObject struct {
	ID    uint64 `json:"id"`
	Label string `json:"label"`

	// Smoothed center (pixels) and depth (meters)
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Depth   float64 `json:"depth"`

	// Grid placement from the latest detection
	Zone perception.Zone `json:"zone"`
	Row  int             `json:"row"`
	Col  int             `json:"col"`

	Confidence float64   `json:"confidence"`
	LastSeen   time.Time `json:"lastSeen"`
}

// SortByDepth orders objects nearest first, ties by id.
func SortByDepth(objs []TrackedObject) {
	sort.SliceStable(objs, func(i, j int) bool {
		if objs[i].Depth != objs[j].Depth {
			return objs[i].Depth < objs[j].Depth
		}
		return objs[i].ID < objs[j].ID
	})
}

// Nearest returns the nearest object in objs, or nil if empty.
func Nearest(objs []TrackedObject) *TrackedObject {
	if len(objs) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(objs); i++ {
		if objs[i].Depth < objs[best].Depth ||
			(objs[i].Depth == objs[best].Depth && objs[i].ID < objs[best].ID) {
			best = i
		}
	}
	o := objs[best]
	return &o
}
