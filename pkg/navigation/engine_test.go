package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sightguide/pkg/perception"
	"github.com/teslashibe/go-sightguide/pkg/tracking"
)

func obj(id uint64, label string, zone perception.Zone, depth float64) tracking.TrackedObject {
	return tracking.TrackedObject{ID: id, Label: label, Zone: zone, Depth: depth, Confidence: 0.9}
}

func TestEngine_Decide(t *testing.T) {
	tests := []struct {
		name   string
		objs   []tracking.TrackedObject
		want   Command
		target uint64 // 0 means no target expected
	}{
		{
			name: "empty is clear path",
			want: CommandClearPath,
		},
		{
			name: "close center object stops",
			objs: []tracking.TrackedObject{obj(1, "person", perception.ZoneCenter, 0.3)},
			want: CommandStop, target: 1,
		},
		{
			name: "stop beats hazards",
			objs: []tracking.TrackedObject{
				obj(1, "staircase", perception.ZoneLeft, 1.0),
				obj(2, "chair", perception.ZoneCenter, 0.3),
			},
			want: CommandStop, target: 2,
		},
		{
			name: "close side object does not stop",
			objs: []tracking.TrackedObject{obj(1, "person", perception.ZoneLeft, 0.3)},
			want: CommandSteerRight, target: 1,
		},
		{
			name: "staircase beats pothole",
			objs: []tracking.TrackedObject{
				obj(1, "pothole", perception.ZoneCenter, 1.0),
				obj(2, "staircase", perception.ZoneRight, 3.0),
			},
			want: CommandStaircase, target: 2,
		},
		{
			name: "pothole phrase",
			objs: []tracking.TrackedObject{obj(3, "Pothole", perception.ZoneLeft, 2.0)},
			want: CommandPothole, target: 3,
		},
		{
			name: "wall on left nudges right",
			objs: []tracking.TrackedObject{obj(1, "wall", perception.ZoneLeft, 2.0)},
			want: CommandMoveRight, target: 1,
		},
		{
			name: "pole on right nudges left",
			objs: []tracking.TrackedObject{obj(1, "POLE", perception.ZoneRight, 2.0)},
			want: CommandMoveLeft, target: 1,
		},
		{
			name: "ramp ahead slows down",
			objs: []tracking.TrackedObject{obj(1, "ramp", perception.ZoneCenter, 2.0)},
			want: CommandSlowDown, target: 1,
		},
		{
			name: "wall beats pole regardless of depth",
			objs: []tracking.TrackedObject{
				obj(1, "pole", perception.ZoneLeft, 0.8),
				obj(2, "wall", perception.ZoneRight, 4.0),
			},
			want: CommandMoveLeft, target: 2,
		},
		{
			name: "same hazard prefers nearest",
			objs: []tracking.TrackedObject{
				obj(1, "wall", perception.ZoneLeft, 3.0),
				obj(2, "wall", perception.ZoneRight, 1.5),
			},
			want: CommandMoveLeft, target: 2,
		},
		{
			name: "left more open steers left",
			objs: []tracking.TrackedObject{
				obj(1, "person", perception.ZoneLeft, 3.0),
				obj(2, "chair", perception.ZoneRight, 1.0),
			},
			want: CommandSteerLeft, target: 2,
		},
		{
			name: "within margin proceeds slowly",
			objs: []tracking.TrackedObject{
				obj(1, "person", perception.ZoneLeft, 2.0),
				obj(2, "chair", perception.ZoneRight, 2.2),
			},
			want: CommandProceedSlowly, target: 1,
		},
		{
			name: "only a far center object proceeds slowly",
			objs: []tracking.TrackedObject{obj(4, "person", perception.ZoneCenter, 2.5)},
			want: CommandProceedSlowly, target: 4,
		},
	}

	e := NewEngine(DefaultEngineConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Decide(tt.objs)
			assert.Equal(t, tt.want, d.Command)
			assert.NotEmpty(t, d.Reason)
			if tt.target == 0 {
				assert.Nil(t, d.Target)
				return
			}
			require.NotNil(t, d.Target)
			assert.Equal(t, tt.target, d.Target.ID)
		})
	}
}

func TestEngine_StopUsesNearestCenter(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	d := e.Decide([]tracking.TrackedObject{
		obj(1, "person", perception.ZoneCenter, 0.45),
		obj(2, "chair", perception.ZoneCenter, 0.2),
	})
	require.NotNil(t, d.Target)
	assert.Equal(t, CommandStop, d.Command)
	assert.EqualValues(t, 2, d.Target.ID)
}

func TestEngine_OpenCountStrategy(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Strategy = SteerOpenCount
	e := NewEngine(cfg)

	d := e.Decide([]tracking.TrackedObject{
		obj(1, "person", perception.ZoneRight, 3.0),
		obj(2, "person", perception.ZoneRight, 4.0),
		obj(3, "chair", perception.ZoneLeft, 2.0),
	})
	assert.Equal(t, CommandSteerRight, d.Command)
}

func TestEngine_IsStateless(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	scene := []tracking.TrackedObject{obj(1, "staircase", perception.ZoneLeft, 2.0)}
	first := e.Decide(scene)
	e.Decide(nil)
	assert.Equal(t, first.Command, e.Decide(scene).Command)
}

func TestCommand_Urgent(t *testing.T) {
	assert.True(t, CommandStop.Urgent())
	assert.True(t, CommandStaircase.Urgent())
	assert.False(t, CommandProceedSlowly.Urgent())
}
