package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"rover-planner/internal/grid"
)

// KeepOutZones are world-frame polygons the rover must never enter. They are
// burned into incoming grids as occupied cells.
type KeepOutZones []orb.Polygon

// loadKeepOutZones loads all GeoJSON files from dir. Unreadable files are
// logged and skipped.
func loadKeepOutZones(dir string) (KeepOutZones, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return nil, err
	}

	log.Printf("Loading keep-out zones from %d GeoJSON files...\n", len(files))

	var zones KeepOutZones
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("⚠️  Failed to read %s: %v\n", file, err)
			continue
		}

		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			log.Printf("⚠️  Failed to parse %s: %v\n", file, err)
			continue
		}

		count := 0
		for _, f := range fc.Features {
			polys := polygonsOf(f.Geometry)
			zones = append(zones, polys...)
			count += len(polys)
		}

		log.Printf("   ✅ Loaded %d polygons from %s\n", count, filepath.Base(file))
	}

	log.Printf("Total keep-out zones loaded: %d polygons\n", len(zones))
	return zones, nil
}

// polygonsOf keeps the areal parts of a geometry; points and lines are ignored
func polygonsOf(g orb.Geometry) []orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{geom}
	case orb.MultiPolygon:
		return append([]orb.Polygon(nil), geom...)
	case orb.Collection:
		var out []orb.Polygon
		for _, sub := range geom {
			out = append(out, polygonsOf(sub)...)
		}
		return out
	}
	return nil
}

// Apply marks every cell whose centre falls inside a zone with the occupied
// label, given the vehicle pose the grid was captured at. It returns the
// number of cells changed.
func (z KeepOutZones) Apply(g *grid.Grid, frame grid.Frame, pose grid.Pose, occupied grid.Label) int {
	if len(z) == 0 {
		return 0
	}

	bounds := make([]orb.Bound, len(z))
	for i, poly := range z {
		bounds[i] = poly.Bound()
	}

	marked := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			cell := grid.Cell{Row: r, Col: c}
			if g.At(cell) == occupied {
				continue
			}
			p := grid.VehicleToWorld(frame.GridToRelative(cell), pose)
			for i, poly := range z {
				if bounds[i].Contains(p) && planar.PolygonContains(poly, p) {
					g.Set(cell, occupied)
					marked++
					break
				}
			}
		}
	}
	return marked
}
