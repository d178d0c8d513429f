package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"rover-planner/internal/grid"
	"rover-planner/internal/rrtstar"
)

// worldPath maps a planned path into the world frame. The result always runs
// from the vehicle cell start towards the goal; tree paths arrive the other
// way round.
func worldPath(path rrtstar.Path, start grid.Cell, frame grid.Frame, pose grid.Pose) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, c := range path {
		ls = append(ls, grid.VehicleToWorld(frame.GridToRelative(c), pose))
	}
	if len(path) > 1 && path[len(path)-1] == start {
		for i, j := 0, len(ls)-1; i < j; i, j = i+1, j-1 {
			ls[i], ls[j] = ls[j], ls[i]
		}
	}
	return ls
}

// worldPathCollection wraps the world path as GeoJSON, optionally simplified
// with Douglas-Peucker at tolerance (world units).
func worldPathCollection(path rrtstar.Path, start grid.Cell, frame grid.Frame, pose grid.Pose, tolerance float64, runID string) *geojson.FeatureCollection {
	ls := worldPath(path, start, frame, pose)
	rawPoints := len(ls)

	if tolerance > 0 && len(ls) > 2 {
		if s, ok := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString); ok {
			ls = s
		}
	}

	f := geojson.NewFeature(ls)
	f.Properties["runId"] = runID
	f.Properties["length"] = planar.Length(ls)
	f.Properties["waypoints"] = len(ls)
	f.Properties["rawWaypoints"] = rawPoints

	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}
