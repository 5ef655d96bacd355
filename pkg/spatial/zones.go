package spatial

import "github.com/teslashibe/go-sightguide/pkg/perception"

// Cell is a position in the 3×3 grid over a frame.
type Cell struct {
	Zone perception.Zone
	Row  int
	Col  int
}

// ZoneMapper maps frame coordinates into the 3×3 grid.
type ZoneMapper struct {
	width  float64
	height float64
}

// NewZoneMapper creates a mapper for frames of the given size.
func NewZoneMapper(width, height int) ZoneMapper {
	return ZoneMapper{width: float64(width), height: float64(height)}
}

// Map returns the cell containing (x, y). The lower edge of each band is
// inclusive: x == width/3 is CENTER and x == 2·width/3 is RIGHT.
// A degenerate frame maps everything to the middle cell.
func (m ZoneMapper) Map(x, y float64) Cell {
	if m.width <= 0 || m.height <= 0 {
		return Cell{Zone: perception.ZoneCenter, Row: 1, Col: 1}
	}
	col := band(x, m.width)
	return Cell{
		Zone: ZoneForCol(col),
		Row:  band(y, m.height),
		Col:  col,
	}
}

// Apply fills the zone and grid position of d from its center.
func (m ZoneMapper) Apply(d *perception.Detection) {
	c := m.Map(d.CenterX, d.CenterY)
	d.Zone, d.Row, d.Col = c.Zone, c.Row, c.Col
}

// ZoneForCol returns LEFT for column 0, CENTER for 1 and RIGHT otherwise.
func ZoneForCol(col int) perception.Zone {
	switch col {
	case 0:
		return perception.ZoneLeft
	case 1:
		return perception.ZoneCenter
	default:
		return perception.ZoneRight
	}
}

// band is clamp(floor(3v/extent), 0, 2) evaluated against the thirds directly
// so boundary values classify the same way regardless of rounding.
func band(v, extent float64) int {
	third := extent / 3
	switch {
	case v < third:
		return 0
	case v < 2*third:
		return 1
	default:
		return 2
	}
}
