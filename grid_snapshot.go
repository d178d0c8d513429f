package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"rover-planner/internal/grid"
	"rover-planner/internal/rrtstar"
)

// GridSnapshot is the on-disk form of an occupancy grid
type GridSnapshot struct {
	Rows         [][]grid.Label `json:"rows"`
	NumRows      int            `json:"numRows"`
	NumCols      int            `json:"numCols"`
	CellsPerUnit float64        `json:"cellsPerUnit"`
	SavedAt      time.Time      `json:"savedAt"`
}

// SaveGridSnapshot serializes and saves the grid to a JSON file
func SaveGridSnapshot(g *grid.Grid, cellsPerUnit float64, filename string) error {
	log.Printf("💾 Saving grid snapshot to %s...\n", filename)

	snap := GridSnapshot{
		Rows:         g.Labels(),
		NumRows:      g.Rows,
		NumCols:      g.Cols,
		CellsPerUnit: cellsPerUnit,
		SavedAt:      time.Now().UTC(),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid: %w", err)
	}

	err = os.WriteFile(filename, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	log.Printf("   ✅ Grid saved (%d bytes)\n", len(data))
	return nil
}

// LoadGridSnapshot deserializes and loads a grid from a JSON file
func LoadGridSnapshot(filename string) (*grid.Grid, error) {
	log.Printf("📂 Loading grid snapshot from %s...\n", filename)

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var snap GridSnapshot
	err = json.Unmarshal(data, &snap)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal grid: %w", err)
	}

	g, err := grid.FromRows(snap.Rows)
	if err != nil {
		return nil, fmt.Errorf("invalid grid snapshot: %w", err)
	}
	if snap.NumRows != 0 && (snap.NumRows != g.Rows || snap.NumCols != g.Cols) {
		return nil, fmt.Errorf("grid snapshot header says %dx%d but rows are %dx%d",
			snap.NumRows, snap.NumCols, g.Rows, g.Cols)
	}

	log.Printf("   ✅ Grid loaded: %dx%d\n", g.Rows, g.Cols)
	return g, nil
}

// TreeAsLineStrings returns every parent-child edge of the tree as a two-point line
func TreeAsLineStrings(t *rrtstar.Tree) [][]grid.Cell {
	edges := t.Edges()
	lines := make([][]grid.Cell, 0, len(edges))
	for _, e := range edges {
		lines = append(lines, []grid.Cell{e[0], e[1]})
	}
	return lines
}
