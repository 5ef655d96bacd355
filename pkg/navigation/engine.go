package navigation

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/teslashibe/go-sightguide/internal/config"
	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/tracking"
)

// SteerStrategy selects how the open side is chosen when nothing is urgent.
type SteerStrategy int

const (
	// SteerMinDepth compares the nearest object on each side.
	SteerMinDepth SteerStrategy = iota
	// SteerOpenCount compares how many far-away objects each side has.
	SteerOpenCount
)

// OpenSideDepth is the depth assumed for a side with no objects.
const OpenSideDepth = 1e9

// EngineConfig holds the decision thresholds.
type EngineConfig struct {
	StopDistance float64 // CENTER objects closer than this trigger a stop (meters)
	SteerMargin  float64 // one side must be this much more open to steer (meters)
	Strategy     SteerStrategy
	OpenDepth    float64 // SteerOpenCount: objects beyond this count as open space
}

// DefaultEngineConfig returns the standard thresholds.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		StopDistance: 0.5,
		SteerMargin:  0.25,
		Strategy:     SteerMinDepth,
		OpenDepth:    1.2,
	}
}

// WithTuning applies the decision fields of a tuning file.
func (c EngineConfig) WithTuning(t *config.Tuning) EngineConfig {
	if t == nil {
		return c
	}
	c.StopDistance = t.GetStopDistanceM(c.StopDistance)
	c.SteerMargin = t.GetSteerMarginM(c.SteerMargin)
	return c
}

// Decision is the outcome of one Decide call.
type Decision struct {
	Command Command
	// Target is the object the command is about; nil for a clear path.
	Target *tracking.TrackedObject
	Reason string
}

// Engine maps the tracked scene to a command. It keeps no state between calls.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates an engine.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Decide evaluates, in order: empty scene, close CENTER obstacle, hazards,
// then lateral openness. The first rule that applies wins.
func (e *Engine) Decide(objs []tracking.TrackedObject) Decision {
	if len(objs) == 0 {
		return Decision{Command: CommandClearPath, Reason: "no objects"}
	}

	center := lo.Filter(objs, func(o tracking.TrackedObject, _ int) bool {
		return o.Zone == perception.ZoneCenter
	})
	if near := tracking.Nearest(center); near != nil && near.Depth < e.cfg.StopDistance {
		return Decision{
			Command: CommandStop,
			Target:  near,
			Reason:  fmt.Sprintf("%s at %.2fm in center", near.Label, near.Depth),
		}
	}

	if h := mostUrgentHazard(objs); h != nil {
		return Decision{
			Command: hazardCommand(*h),
			Target:  h,
			Reason:  fmt.Sprintf("hazard %s in %s at %.2fm", h.Label, h.Zone, h.Depth),
		}
	}

	nearest := tracking.Nearest(objs)
	switch e.cfg.Strategy {
	case SteerOpenCount:
		return e.steerByCount(objs, nearest)
	default:
		return e.steerByDepth(objs, nearest)
	}
}

func (e *Engine) steerByDepth(objs []tracking.TrackedObject, nearest *tracking.TrackedObject) Decision {
	left := sideMinDepth(objs, perception.ZoneLeft)
	right := sideMinDepth(objs, perception.ZoneRight)
	reason := fmt.Sprintf("left %.2fm, right %.2fm", left, right)

	switch {
	case left-right > e.cfg.SteerMargin:
		return Decision{Command: CommandSteerLeft, Target: nearest, Reason: reason}
	case right-left > e.cfg.SteerMargin:
		return Decision{Command: CommandSteerRight, Target: nearest, Reason: reason}
	default:
		return Decision{Command: CommandProceedSlowly, Target: nearest, Reason: reason}
	}
}

func (e *Engine) steerByCount(objs []tracking.TrackedObject, nearest *tracking.TrackedObject) Decision {
	open := func(zone perception.Zone) int {
		return lo.CountBy(objs, func(o tracking.TrackedObject) bool {
			return o.Zone == zone && o.Depth > e.cfg.OpenDepth
		})
	}
	left, right := open(perception.ZoneLeft), open(perception.ZoneRight)
	reason := fmt.Sprintf("open left %d, open right %d", left, right)

	switch {
	case left > right:
		return Decision{Command: CommandSteerLeft, Target: nearest, Reason: reason}
	case right > left:
		return Decision{Command: CommandSteerRight, Target: nearest, Reason: reason}
	default:
		return Decision{Command: CommandProceedSlowly, Target: nearest, Reason: reason}
	}
}

func sideMinDepth(objs []tracking.TrackedObject, zone perception.Zone) float64 {
	side := lo.Filter(objs, func(o tracking.TrackedObject, _ int) bool { return o.Zone == zone })
	if len(side) == 0 {
		return OpenSideDepth
	}
	return lo.MinBy(side, func(a, b tracking.TrackedObject) bool { return a.Depth < b.Depth }).Depth
}

func hazardRank(label string) int {
	return lo.IndexOf(HazardPriority, strings.ToLower(label))
}

// mostUrgentHazard picks the highest-priority hazard, then the nearest, then
// the lowest id.
func mostUrgentHazard(objs []tracking.TrackedObject) *tracking.TrackedObject {
	hazards := lo.Filter(objs, func(o tracking.TrackedObject, _ int) bool {
		return hazardRank(o.Label) >= 0
	})
	if len(hazards) == 0 {
		return nil
	}
	h := lo.MinBy(hazards, func(a, b tracking.TrackedObject) bool {
		ra, rb := hazardRank(a.Label), hazardRank(b.Label)
		if ra != rb {
			return ra < rb
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.ID < b.ID
	})
	return &h
}

func hazardCommand(h tracking.TrackedObject) Command {
	switch strings.ToLower(h.Label) {
	case "staircase":
		return CommandStaircase
	case "pothole":
		return CommandPothole
	}
	switch h.Zone {
	case perception.ZoneLeft:
		return CommandMoveRight
	case perception.ZoneRight:
		return CommandMoveLeft
	default:
		return CommandSlowDown
	}
}
