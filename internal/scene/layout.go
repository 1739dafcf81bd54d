package scene

import "github.com/Benny93/conceptmap-go/internal/geometry"

// Grid hands out positions for new nodes row by row.
type Grid struct {
	Origin  geometry.Point
	Columns int
	Step    geometry.Point

	placed int
}

// NewGrid returns the default placement grid: three columns starting at
// (100,100), 200 apart horizontally and 150 vertically.
func NewGrid() *Grid {
	return &Grid{
		Origin:  geometry.Point{X: 100, Y: 100},
		Columns: 3,
		Step:    geometry.Point{X: 200, Y: 150},
	}
}

// Next returns the next free slot and advances the grid.
func (g *Grid) Next() geometry.Point {
	cols := g.Columns
	if cols <= 0 {
		cols = 1
	}
	col := g.placed % cols
	row := g.placed / cols
	g.placed++
	return geometry.Point{
		X: g.Origin.X + float64(col)*g.Step.X,
		Y: g.Origin.Y + float64(row)*g.Step.Y,
	}
}

// Placed returns the number of slots handed out.
func (g *Grid) Placed() int { return g.placed }

// Reset starts placing from the origin again.
func (g *Grid) Reset() { g.placed = 0 }
