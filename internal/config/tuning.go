package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the planner's parameter file. Every field is optional;
// the Get* methods fall back to the vehicle defaults for omitted fields.
type TuningConfig struct {
	// Planner params
	RRTStep          *float64 `json:"rrt_step,omitempty"`           // cells per extension
	RRTRadius        *float64 `json:"rrt_radius,omitempty"`         // neighbour radius in cells
	RRTMaxIterations *int     `json:"rrt_max_iterations,omitempty"` // accepted extensions per plan

	// Grid params
	CellsPerUnit  *float64 `json:"cells_per_unit,omitempty"`
	OccupiedLabel *int     `json:"occupied_label,omitempty"`
	FreeLabel     *int     `json:"free_label,omitempty"`
	InflateRadius *int     `json:"inflate_radius,omitempty"` // obstacle growth in cells, about half the vehicle width

	// Steering params
	ForwardNudge *float64 `json:"forward_nudge,omitempty"` // fallback waypoint distance in cells

	// Service params
	ListenAddr *string `json:"listen_addr,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// DefaultTuningConfig returns a TuningConfig with every field set to its default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		RRTStep:          ptrFloat64(6),
		RRTRadius:        ptrFloat64(60),
		RRTMaxIterations: ptrInt(400),
		CellsPerUnit:     ptrFloat64(50),
		OccupiedLabel:    ptrInt(100),
		FreeLabel:        ptrInt(0),
		InflateRadius:    ptrInt(3),
		ForwardNudge:     ptrFloat64(10),
		ListenAddr:       ptrString(":8080"),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults through the Get* methods.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.RRTStep != nil && *c.RRTStep <= 0 {
		return fmt.Errorf("rrt_step must be positive, got %f", *c.RRTStep)
	}
	if c.RRTRadius != nil && *c.RRTRadius <= 0 {
		return fmt.Errorf("rrt_radius must be positive, got %f", *c.RRTRadius)
	}
	if c.RRTMaxIterations != nil && *c.RRTMaxIterations <= 0 {
		return fmt.Errorf("rrt_max_iterations must be positive, got %d", *c.RRTMaxIterations)
	}
	if c.CellsPerUnit != nil && *c.CellsPerUnit <= 0 {
		return fmt.Errorf("cells_per_unit must be positive, got %f", *c.CellsPerUnit)
	}
	if c.OccupiedLabel != nil && c.FreeLabel != nil && *c.OccupiedLabel == *c.FreeLabel {
		return fmt.Errorf("occupied_label and free_label must differ, both are %d", *c.OccupiedLabel)
	}
	if c.InflateRadius != nil && *c.InflateRadius < 0 {
		return fmt.Errorf("inflate_radius must be non-negative, got %d", *c.InflateRadius)
	}
	if c.ForwardNudge != nil && *c.ForwardNudge < 0 {
		return fmt.Errorf("forward_nudge must be non-negative, got %f", *c.ForwardNudge)
	}
	return nil
}

// GetRRTStep returns the rrt_step value or the default.
func (c *TuningConfig) GetRRTStep() float64 {
	if c.RRTStep == nil {
		return 6
	}
	return *c.RRTStep
}

// GetRRTRadius returns the rrt_radius value or the default.
func (c *TuningConfig) GetRRTRadius() float64 {
	if c.RRTRadius == nil {
		return 60
	}
	return *c.RRTRadius
}

// GetRRTMaxIterations returns the rrt_max_iterations value or the default.
func (c *TuningConfig) GetRRTMaxIterations() int {
	if c.RRTMaxIterations == nil {
		return 400
	}
	return *c.RRTMaxIterations
}

// GetCellsPerUnit returns the cells_per_unit value or the default.
func (c *TuningConfig) GetCellsPerUnit() float64 {
	if c.CellsPerUnit == nil {
		return 50
	}
	return *c.CellsPerUnit
}

// GetOccupiedLabel returns the occupied_label value or the default.
func (c *TuningConfig) GetOccupiedLabel() int {
	if c.OccupiedLabel == nil {
		return 100
	}
	return *c.OccupiedLabel
}

// GetFreeLabel returns the free_label value or the default.
func (c *TuningConfig) GetFreeLabel() int {
	if c.FreeLabel == nil {
		return 0
	}
	return *c.FreeLabel
}

// GetInflateRadius returns the inflate_radius value or the default.
func (c *TuningConfig) GetInflateRadius() int {
	if c.InflateRadius == nil {
		return 3
	}
	return *c.InflateRadius
}

// GetForwardNudge returns the forward_nudge value or the default.
func (c *TuningConfig) GetForwardNudge() float64 {
	if c.ForwardNudge == nil {
		return 10
	}
	return *c.ForwardNudge
}

// GetListenAddr returns the listen_addr value or the default.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}
