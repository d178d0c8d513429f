package rrtstar

import "errors"

// Failure kinds recorded in Stats.Err. Plan reports all of them to the
// caller the same way, as a missing path.
var (
	ErrNoGrid          = errors.New("rrtstar: no grid set")
	ErrStartBlocked    = errors.New("rrtstar: start cell is occupied")
	ErrIterationBudget = errors.New("rrtstar: iteration budget exceeded")
	ErrStagnation      = errors.New("rrtstar: too many consecutive rejected extensions")

	// ErrBusy is returned by mutating calls made while a plan is running.
	ErrBusy = errors.New("rrtstar: planner is busy")
)
