package rrtstar

import "rover-planner/internal/grid"

// SegmentCollides reports whether the rasterized line from a to b touches a
// cell labelled occupied. Cells outside the grid are skipped rather than
// treated as collisions, so a segment that leaves the grid and comes back
// can still be reported clear.
func SegmentCollides(g *grid.Grid, a, b grid.Cell, occupied grid.Label) bool {
	for _, c := range grid.Line(a, b) {
		if !g.InBounds(c) {
			continue
		}
		if g.At(c) == occupied {
			return true
		}
	}
	return false
}
