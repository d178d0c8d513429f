package rrtstar

import "rover-planner/internal/grid"

// Path is a planner result. A tree search yields the terminal node first and
// walks back towards the start; the direct shortcut yields [start, goal].
// Either way index 1 is the next steering waypoint.
type Path []grid.Cell

// Next returns the waypoint at index 1.
func (p Path) Next() (grid.Cell, bool) {
	if len(p) < 2 {
		return grid.Cell{}, false
	}
	return p[1], true
}

// Length sums the Euclidean length of consecutive waypoints in cells.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i-1].Distance(p[i])
	}
	return total
}
