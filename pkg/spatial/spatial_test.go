package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teslashibe/go-sightguide/pkg/perception"
)

func TestVerticalScale(t *testing.T) {
	assert.InDelta(t, 1.0, VerticalScale(0), 1e-12)
	assert.InDelta(t, 1.2, VerticalScale(0.5), 1e-12)
	assert.InDelta(t, 1.2, VerticalScale(-0.5), 1e-12)
	assert.InDelta(t, MaxScale, VerticalScale(math.Pi/2), 1e-12)
}

func TestProjector_LevelIsIdentity(t *testing.T) {
	p := NewProjector(480)
	x, y := p.Project(123, 456, 0)
	assert.InDelta(t, 123, x, 1e-9)
	assert.InDelta(t, 456, y, 1e-9)
}

func TestProjector_ScalesAboutCenter(t *testing.T) {
	p := NewProjector(480)

	// The middle row is fixed
	_, y := p.Project(10, 240, 0.5)
	assert.InDelta(t, 240, y, 1e-9)

	// Rows below stretch away from it by the scale factor
	x, y := p.Project(10, 340, 0.5)
	assert.InDelta(t, 10, x, 1e-9)
	assert.InDelta(t, 240+100*1.2, y, 1e-9)

	_, y = p.Project(10, 140, -0.5)
	assert.InDelta(t, 240-100*1.2, y, 1e-9)
}

func TestProjector_NonFinitePitch(t *testing.T) {
	p := NewProjector(100)
	x, y := p.Project(5, 80, math.NaN())
	assert.InDelta(t, 5, x, 1e-9)
	assert.InDelta(t, 80, y, 1e-9)
}

func TestZoneMapper_Bands(t *testing.T) {
	m := NewZoneMapper(600, 300)

	tests := []struct {
		name string
		x, y float64
		want Cell
	}{
		{"top left", 0, 0, Cell{perception.ZoneLeft, 0, 0}},
		{"just left of first edge", 199.999, 50, Cell{perception.ZoneLeft, 0, 0}},
		{"first edge is center", 200, 100, Cell{perception.ZoneCenter, 1, 1}},
		{"second edge is right", 400, 200, Cell{perception.ZoneRight, 2, 2}},
		{"bottom right corner", 600, 300, Cell{perception.ZoneRight, 2, 2}},
		{"beyond frame clamps", 900, 900, Cell{perception.ZoneRight, 2, 2}},
		{"negative clamps", -5, -5, Cell{perception.ZoneLeft, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.x, tt.y))
		})
	}
}

func TestZoneMapper_NonDivisibleWidth(t *testing.T) {
	m := NewZoneMapper(640, 480)
	assert.Equal(t, perception.ZoneCenter, m.Map(640.0/3, 0).Zone)
	assert.Equal(t, perception.ZoneRight, m.Map(2*640.0/3, 0).Zone)
}

func TestZoneMapper_Degenerate(t *testing.T) {
	for _, m := range []ZoneMapper{NewZoneMapper(0, 480), NewZoneMapper(640, -1)} {
		assert.Equal(t, Cell{perception.ZoneCenter, 1, 1}, m.Map(10, 10))
	}
}

func TestZoneMapper_Apply(t *testing.T) {
	m := NewZoneMapper(300, 300)
	d := perception.Detection{Label: "chair", CenterX: 250, CenterY: 50}
	m.Apply(&d)
	assert.Equal(t, perception.ZoneRight, d.Zone)
	assert.Equal(t, 0, d.Row)
	assert.Equal(t, 2, d.Col)
}
