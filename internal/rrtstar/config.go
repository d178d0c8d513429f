package rrtstar

import (
	"fmt"

	"rover-planner/internal/config"
	"rover-planner/internal/grid"
)

// StagnationLimit is the number of consecutive rejected extension attempts
// after which a plan is abandoned.
const StagnationLimit = 40

// Config holds the planner parameters. Distances are in grid cells.
type Config struct {
	StepSize       float64    // Distance a single extension advances towards a sample
	NeighborRadius float64    // Radius for parent candidates and rewiring
	MaxIterations  int        // Accepted extensions before giving up
	CellsPerUnit   float64    // Grid resolution, cells per physical unit
	OccupiedLabel  grid.Label // Label the collision oracle treats as blocked
}

// DefaultConfig returns the parameters used on the vehicle.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		StepSize:       cfg.GetRRTStep(),
		NeighborRadius: cfg.GetRRTRadius(),
		MaxIterations:  cfg.GetRRTMaxIterations(),
		CellsPerUnit:   cfg.GetCellsPerUnit(),
		OccupiedLabel:  grid.Label(cfg.GetOccupiedLabel()),
	}
}

// Validate checks that the configuration can drive the planner.
func (c Config) Validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("StepSize must be positive, got %f", c.StepSize)
	}
	if c.NeighborRadius <= 0 {
		return fmt.Errorf("NeighborRadius must be positive, got %f", c.NeighborRadius)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("MaxIterations must be positive, got %d", c.MaxIterations)
	}
	if c.CellsPerUnit <= 0 {
		return fmt.Errorf("CellsPerUnit must be positive, got %f", c.CellsPerUnit)
	}
	return nil
}
