package rrtstar

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"rover-planner/internal/grid"
)

// nodeEntry wraps a tree node for R-tree storage
type nodeEntry struct {
	id   int
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *nodeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// neighborIndex answers radius queries over node positions.
type neighborIndex struct {
	tree *rtreego.Rtree
}

func newNeighborIndex() *neighborIndex {
	return &neighborIndex{tree: rtreego.NewTree(2, 25, 50)}
}

func (ix *neighborIndex) insert(id int, c grid.Cell) {
	p := rtreego.Point{float64(c.Row), float64(c.Col)}
	ix.tree.Insert(&nodeEntry{id: id, bbox: p.ToRect(0.01)})
}

// candidates returns the ids whose bounding box intersects the square of
// half-width radius around c, in insertion order. The caller still has to
// filter by exact distance.
func (ix *neighborIndex) candidates(c grid.Cell, radius float64) []int {
	bbox, err := rtreego.NewRect(
		rtreego.Point{float64(c.Row) - radius, float64(c.Col) - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	results := ix.tree.SearchIntersect(bbox)
	ids := make([]int, 0, len(results))
	for _, item := range results {
		ids = append(ids, item.(*nodeEntry).id)
	}
	sort.Ints(ids)
	return ids
}
