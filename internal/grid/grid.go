// Package grid holds the occupancy grid view handed to the planner each
// cycle, together with the cell rasterization and frame conversions that
// operate on it.
//
// Orientation: row 0 is the row farthest from the vehicle and the vehicle
// itself sits at the bottom-centre cell (Rows-1, Cols/2).
package grid

import (
	"fmt"
	"math"
)

// Label is the state stored in a grid cell. The values follow the ROS
// OccupancyGrid convention; the planner only compares against the label it
// was configured to treat as occupied.
type Label int

const (
	Unknown  Label = -1
	Free     Label = 0
	Occupied Label = 100
)

// Cell is a (row, col) address in the grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Distance calculates Euclidean distance between two cells
func (c Cell) Distance(other Cell) float64 {
	dr := float64(c.Row - other.Row)
	dc := float64(c.Col - other.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Grid is a Rows x Cols array of labels stored row-major.
type Grid struct {
	Rows  int
	Cols  int
	cells []Label
}

// New creates a grid with every cell set to fill.
func New(rows, cols int, fill Label) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	g := &Grid{Rows: rows, Cols: cols, cells: make([]Label, rows*cols)}
	if fill != 0 {
		for i := range g.cells {
			g.cells[i] = fill
		}
	}
	return g, nil
}

// FromRows builds a grid from a rectangular slice of rows. The data is copied.
func FromRows(rows [][]Label) (*Grid, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("grid has no rows")
	}
	g, err := New(len(rows), len(rows[0]), 0)
	if err != nil {
		return nil, err
	}
	for r, row := range rows {
		if len(row) != g.Cols {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", r, len(row), g.Cols)
		}
		copy(g.cells[r*g.Cols:], row)
	}
	return g, nil
}

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// At returns the label at c. The caller must check InBounds first.
func (g *Grid) At(c Cell) Label {
	return g.cells[c.Row*g.Cols+c.Col]
}

// Set writes the label at c, ignoring out of bounds cells.
func (g *Grid) Set(c Cell, l Label) {
	if !g.InBounds(c) {
		return
	}
	g.cells[c.Row*g.Cols+c.Col] = l
}

// Start returns the vehicle's own cell, bottom-centre of the grid.
func (g *Grid) Start() Cell {
	return Cell{Row: g.Rows - 1, Col: g.Cols / 2}
}

// Clamp moves c onto the nearest in-bounds cell.
func (g *Grid) Clamp(c Cell) Cell {
	c.Row = max(0, min(c.Row, g.Rows-1))
	c.Col = max(0, min(c.Col, g.Cols-1))
	return c
}

// Labels returns a copy of the grid as rows, the shape accepted by FromRows.
func (g *Grid) Labels() [][]Label {
	out := make([][]Label, g.Rows)
	for r := range out {
		out[r] = append([]Label(nil), g.cells[r*g.Cols:(r+1)*g.Cols]...)
	}
	return out
}
