package rrtstar

import (
	"fmt"
	"math"

	"rover-planner/internal/grid"
)

// NoParent marks the root's parent link.
const NoParent = -1

// Node is one vertex of the planning tree. Parent and Children are indices
// into the owning Tree; they never keep nodes alive on their own.
type Node struct {
	Pos      grid.Cell
	Cost     float64
	Parent   int
	Children []int
}

// Tree is an insertion-ordered arena of nodes with node 0 as the root.
type Tree struct {
	nodes []Node
	index *neighborIndex

	// onCost is called whenever a node's cost is lowered after insertion.
	onCost func(id int, oldCost, newCost float64)
}

// NewTree creates a tree holding only a root at start.
func NewTree(start grid.Cell) *Tree {
	t := &Tree{}
	t.Reset(start)
	return t
}

// Reset discards every node and reseeds the tree with a root at start.
func (t *Tree) Reset(start grid.Cell) {
	t.nodes = t.nodes[:0]
	t.index = newNeighborIndex()
	t.nodes = append(t.nodes, Node{Pos: start, Cost: 0, Parent: NoParent})
	t.index.insert(0, start)
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of node id.
func (t *Tree) Node(id int) Node {
	n := t.nodes[id]
	n.Children = append([]int(nil), n.Children...)
	return n
}

// Add attaches a new node under parent and returns its id.
func (t *Tree) Add(pos grid.Cell, parent int, cost float64) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{Pos: pos, Cost: cost, Parent: parent})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	t.index.insert(id, pos)
	return id
}

func (t *Tree) distance(a, b int) float64 {
	return t.nodes[a].Pos.Distance(t.nodes[b].Pos)
}

// Nearest returns the node closest to c by a linear scan. Ties go to the
// earliest inserted node.
func (t *Tree) Nearest(c grid.Cell) int {
	best := 0
	bestDist := math.Inf(1)
	for i := range t.nodes {
		if d := t.nodes[i].Pos.Distance(c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Near returns the nodes within radius of c in insertion order. With
// inclusive set, nodes exactly at radius are kept.
func (t *Tree) Near(c grid.Cell, radius float64, inclusive bool) []int {
	var ids []int
	for _, id := range t.index.candidates(c, radius) {
		d := t.nodes[id].Pos.Distance(c)
		if d < radius || (inclusive && d == radius) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Reparent moves child under parent with the given cost, then pushes the
// cost change down the child's subtree. Descendant costs only ever drop.
func (t *Tree) Reparent(child, parent int, cost float64) {
	old := t.nodes[child].Parent
	if old != NoParent {
		kids := t.nodes[old].Children
		for i, k := range kids {
			if k == child {
				t.nodes[old].Children = append(kids[:i], kids[i+1:]...)
				break
			}
		}
	}
	t.nodes[child].Parent = parent
	t.nodes[parent].Children = append(t.nodes[parent].Children, child)
	t.setCost(child, cost)
	t.propagate(child)
}

func (t *Tree) setCost(id int, cost float64) {
	if t.onCost != nil {
		t.onCost(id, t.nodes[id].Cost, cost)
	}
	t.nodes[id].Cost = cost
}

// propagate walks the subtree below id with an explicit stack.
func (t *Tree) propagate(id int) {
	stack := []int{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range t.nodes[n].Children {
			proposed := t.nodes[n].Cost + t.distance(n, child)
			if proposed < t.nodes[child].Cost {
				t.setCost(child, proposed)
				stack = append(stack, child)
			}
		}
	}
}

// PathFrom walks parent links from id towards the root. The walk stops at
// the root or at the first cell equal to start, whichever comes first.
// The result begins at id.
func (t *Tree) PathFrom(id int, start grid.Cell) []grid.Cell {
	path := []grid.Cell{t.nodes[id].Pos}
	for n := id; ; {
		parent := t.nodes[n].Parent
		if parent == NoParent {
			path = append(path, start)
			break
		}
		pos := t.nodes[parent].Pos
		path = append(path, pos)
		if pos == start {
			break
		}
		n = parent
	}
	return path
}

// Edges returns every parent-child segment, parent first.
func (t *Tree) Edges() [][2]grid.Cell {
	edges := make([][2]grid.Cell, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.Parent == NoParent {
			continue
		}
		edges = append(edges, [2]grid.Cell{t.nodes[n.Parent].Pos, n.Pos})
	}
	return edges
}

// Validate checks the structural invariants of the tree and returns the
// first violation found. Costs must match parent cost plus edge length
// within tol.
func (t *Tree) Validate(tol float64) error {
	if len(t.nodes) == 0 {
		return fmt.Errorf("tree is empty")
	}
	root := t.nodes[0]
	if root.Parent != NoParent || root.Cost != 0 {
		return fmt.Errorf("root has parent %d and cost %f", root.Parent, root.Cost)
	}
	for id := 1; id < len(t.nodes); id++ {
		if p := t.nodes[id].Parent; p < 0 || p >= len(t.nodes) {
			return fmt.Errorf("node %d has dangling parent %d", id, p)
		}
	}
	for id := 1; id < len(t.nodes); id++ {
		n := t.nodes[id]
		if !contains(t.nodes[n.Parent].Children, id) {
			return fmt.Errorf("node %d missing from children of parent %d", id, n.Parent)
		}
		want := t.nodes[n.Parent].Cost + t.distance(n.Parent, id)
		if math.Abs(n.Cost-want) > tol {
			return fmt.Errorf("node %d cost %f, expected %f", id, n.Cost, want)
		}
		// Every chain must reach the root within Len steps.
		steps := 0
		for p := id; p != 0; p = t.nodes[p].Parent {
			if steps++; steps > len(t.nodes) {
				return fmt.Errorf("node %d is on a cycle", id)
			}
		}
	}
	for id, n := range t.nodes {
		for _, child := range n.Children {
			if t.nodes[child].Parent != id {
				return fmt.Errorf("node %d lists %d as child but its parent is %d", id, child, t.nodes[child].Parent)
			}
		}
	}
	return nil
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
