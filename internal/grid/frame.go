package grid

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
)

// Frame converts between the vehicle-relative physical frame and grid
// cells. X points forward (towards row 0) and Y points to the vehicle's
// left (towards column 0), both in physical units.
type Frame struct {
	Rows         int
	Cols         int
	CellsPerUnit float64
}

// FrameOf returns the frame for g at the given resolution.
func FrameOf(g *Grid, cellsPerUnit float64) Frame {
	return Frame{Rows: g.Rows, Cols: g.Cols, CellsPerUnit: cellsPerUnit}
}

// RelativeToGrid maps a vehicle-relative point to a cell, truncating towards zero.
func (f Frame) RelativeToGrid(v r2.Vec) Cell {
	row := float64(f.Rows-1) - v.X*f.CellsPerUnit
	col := float64(f.Cols/2) - v.Y*f.CellsPerUnit
	return Cell{Row: int(row), Col: int(col)}
}

// GridToRelative is the algebraic inverse of RelativeToGrid. Round trips are
// subject to the truncation in RelativeToGrid.
func (f Frame) GridToRelative(c Cell) r2.Vec {
	return r2.Vec{
		X: float64(f.Rows-1-c.Row) / f.CellsPerUnit,
		Y: float64(f.Cols/2-c.Col) / f.CellsPerUnit,
	}
}

// Pose is the vehicle's odometry pose in the world frame. Heading is in
// radians, counter-clockwise from the world X axis.
type Pose struct {
	Position orb.Point
	Heading  float64
}

// WorldToVehicle expresses a world point in the vehicle-relative frame:
// translate by the vehicle position, then rotate by -heading.
func WorldToVehicle(p orb.Point, pose Pose) r2.Vec {
	d := r2.Vec{X: p.X() - pose.Position.X(), Y: p.Y() - pose.Position.Y()}
	return r2.Rotate(d, -pose.Heading, r2.Vec{})
}

// VehicleToWorld is the inverse of WorldToVehicle.
func VehicleToWorld(v r2.Vec, pose Pose) orb.Point {
	w := r2.Add(r2.Rotate(v, pose.Heading, r2.Vec{}), r2.Vec{X: pose.Position.X(), Y: pose.Position.Y()})
	return orb.Point{w.X, w.Y}
}
