package main

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"rover-planner/internal/grid"
	"rover-planner/internal/rrtstar"
)

// SteeringTarget is the local waypoint handed to the controller, in cells
// relative to the vehicle: X forward, Y to the right.
type SteeringTarget struct {
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Heading  float64   `json:"heading"` // radians, positive to the right
	Distance float64   `json:"distance"`
	Waypoint grid.Cell `json:"waypoint"`
	Fallback bool      `json:"fallback"`
}

// computeSteeringTarget turns the next waypoint of a plan into a local target.
// Without a usable path the vehicle is nudged straight ahead by nudge cells.
func computeSteeringTarget(path rrtstar.Path, ok bool, g *grid.Grid, nudge float64) SteeringTarget {
	next, has := path.Next()
	if !ok || !has {
		v := r2.Vec{X: nudge}
		return SteeringTarget{X: v.X, Y: v.Y, Distance: r2.Norm(v), Fallback: true}
	}

	v := r2.Vec{
		X: float64(g.Rows - next.Row),
		Y: float64(next.Col) - 0.5*float64(g.Cols),
	}
	return SteeringTarget{
		X:        v.X,
		Y:        v.Y,
		Heading:  math.Atan2(v.Y, v.X),
		Distance: r2.Norm(v),
		Waypoint: next,
	}
}
