// Package rrtstar grows an RRT* tree over an occupancy grid to find a short
// collision-free path from the vehicle's cell to a goal cell.
//
// The engine is synchronous and meant to be driven from a single control
// loop: push a fresh grid with SetGrid, then call Plan once per tick.
package rrtstar

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"rover-planner/internal/grid"
	"rover-planner/internal/monitoring"
)

// State is the engine's lifecycle state.
type State int

const (
	Idle     State = iota // no grid set
	Ready                 // grid set, no plan running
	Planning              // Plan executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Planning:
		return "planning"
	}
	return "unknown"
}

// Stats describes the most recent Plan call.
type Stats struct {
	RunID      string
	Iterations int // accepted, non-terminal extensions
	Attempts   int // sampled extensions, accepted or not
	Rejections int
	Rewires    int
	TreeSize   int
	Shortcut   bool
	Duration   time.Duration
	Err        error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the sampling source. Tests use it for reproducible runs.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithRewireHook registers fn to observe every cost decrease made by
// rewiring, including those propagated to descendants.
func WithRewireHook(fn func(node int, oldCost, newCost float64)) Option {
	return func(e *Engine) { e.rewireHook = fn }
}

// Engine owns the grid, the planning tree and the parameters.
type Engine struct {
	cfg   Config
	grid  *grid.Grid
	start grid.Cell
	state State
	tree  *Tree
	rng   *rand.Rand
	stats Stats

	rewireHook func(node int, oldCost, newCost float64)
}

// New creates an engine in the Idle state.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, state: Idle}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Config returns the current parameters.
func (e *Engine) Config() Config { return e.cfg }

// SetConfig replaces the parameters. It fails with ErrBusy while planning.
func (e *Engine) SetConfig(cfg Config) error {
	if e.state == Planning {
		return ErrBusy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// SetGrid installs the grid for the next Plan and recomputes the start
// cell. While a plan is running the call is ignored and reports false.
func (e *Engine) SetGrid(g *grid.Grid) bool {
	if e.state == Planning || g == nil {
		return false
	}
	e.grid = g
	e.start = g.Start()
	e.state = Ready
	return true
}

// Grid returns the installed grid, or nil.
func (e *Engine) Grid() *grid.Grid { return e.grid }

// Start returns the vehicle cell of the installed grid.
func (e *Engine) Start() grid.Cell { return e.start }

// Tree returns the tree built by the most recent Plan. It is replaced by
// the next call.
func (e *Engine) Tree() *Tree { return e.tree }

// Stats returns the statistics of the most recent Plan.
func (e *Engine) Stats() Stats { return e.stats }

// Frame returns the grid/relative frame for the installed grid.
func (e *Engine) Frame() (grid.Frame, bool) {
	if e.grid == nil {
		return grid.Frame{}, false
	}
	return grid.FrameOf(e.grid, e.cfg.CellsPerUnit), true
}

// Plan searches for a path to goal. On failure it returns nil and false;
// Stats().Err tells which budget or precondition stopped it.
func (e *Engine) Plan(goal grid.Cell) (Path, bool) {
	e.stats = Stats{RunID: uuid.NewString()}
	began := time.Now()
	defer func() { e.stats.Duration = time.Since(began) }()

	if e.grid == nil {
		return e.fail(ErrNoGrid)
	}

	e.state = Planning
	defer func() { e.state = Ready }()

	if e.tree == nil {
		e.tree = NewTree(e.start)
	} else {
		e.tree.Reset(e.start)
	}
	e.tree.onCost = e.observeCost
	e.stats.TreeSize = 1

	if e.grid.At(e.start) == e.cfg.OccupiedLabel {
		return e.fail(ErrStartBlocked)
	}

	if !e.collides(e.start, goal) {
		e.stats.Shortcut = true
		monitoring.Logf("rrtstar[%s]: direct line to goal %v", e.stats.RunID, goal)
		return Path{e.start, goal}, true
	}

	return e.grow(goal)
}

func (e *Engine) grow(goal grid.Cell) (Path, bool) {
	t := e.tree
	stagnation := 0
	for {
		if e.stats.Iterations >= e.cfg.MaxIterations {
			return e.fail(ErrIterationBudget)
		}
		if stagnation > StagnationLimit {
			return e.fail(ErrStagnation)
		}
		e.stats.Attempts++

		sample := grid.Cell{Row: e.rng.Intn(e.grid.Rows), Col: e.rng.Intn(e.grid.Cols)}
		nearest := t.Nearest(sample)
		candidate := e.steer(t.nodes[nearest].Pos, sample)
		if !e.grid.InBounds(candidate) {
			stagnation++
			e.stats.Rejections++
			continue
		}

		parent, cost, ok := e.bestParent(candidate)
		if !ok {
			stagnation++
			e.stats.Rejections++
			continue
		}

		directConnect := !e.collides(candidate, goal)
		nodeConnect := !e.collides(candidate, t.nodes[nearest].Pos)

		switch {
		case directConnect && nodeConnect:
			// The tree is discarded after this call, so the terminal node
			// is not rewired.
			id := t.Add(candidate, parent, cost)
			e.stats.TreeSize = t.Len()
			monitoring.Logf("rrtstar[%s]: path found in %d iterations, tree size %d",
				e.stats.RunID, e.stats.Iterations, t.Len())
			return Path(t.PathFrom(id, e.start)), true

		case nodeConnect:
			id := t.Add(candidate, parent, cost)
			e.rewire(id)
			e.stats.Iterations++
			e.stats.TreeSize = t.Len()
			stagnation = 0

		default:
			stagnation++
			e.stats.Rejections++
		}
	}
}

// steer advances exactly StepSize from from towards to, truncating the
// result to a cell.
func (e *Engine) steer(from, to grid.Cell) grid.Cell {
	theta := math.Atan2(float64(to.Col-from.Col), float64(to.Row-from.Row))
	return grid.Cell{
		Row: int(float64(from.Row) + e.cfg.StepSize*math.Cos(theta)),
		Col: int(float64(from.Col) + e.cfg.StepSize*math.Sin(theta)),
	}
}

// bestParent picks the node within NeighborRadius of c that minimises
// cost-to-come through a collision-free edge.
func (e *Engine) bestParent(c grid.Cell) (int, float64, bool) {
	t := e.tree
	best := NoParent
	bestCost := math.Inf(1)
	for _, id := range t.Near(c, e.cfg.NeighborRadius, true) {
		cost := t.nodes[id].Cost + t.nodes[id].Pos.Distance(c)
		if cost < bestCost && !e.collides(t.nodes[id].Pos, c) {
			best, bestCost = id, cost
		}
	}
	return best, bestCost, best != NoParent
}

// rewire re-parents neighbours of id that are cheaper to reach through it.
func (e *Engine) rewire(id int) {
	t := e.tree
	pos := t.nodes[id].Pos
	for _, n := range t.Near(pos, e.cfg.NeighborRadius, false) {
		if n == id {
			continue
		}
		via := t.nodes[id].Cost + pos.Distance(t.nodes[n].Pos)
		if via < t.nodes[n].Cost && !e.collides(pos, t.nodes[n].Pos) {
			t.Reparent(n, id, via)
			e.stats.Rewires++
		}
	}
}

func (e *Engine) observeCost(id int, oldCost, newCost float64) {
	if e.rewireHook != nil {
		e.rewireHook(id, oldCost, newCost)
	}
}

func (e *Engine) collides(a, b grid.Cell) bool {
	return SegmentCollides(e.grid, a, b, e.cfg.OccupiedLabel)
}

func (e *Engine) fail(err error) (Path, bool) {
	e.stats.Err = err
	monitoring.Logf("rrtstar[%s]: no path: %v (iterations %d, attempts %d, tree size %d)",
		e.stats.RunID, err, e.stats.Iterations, e.stats.Attempts, e.stats.TreeSize)
	return nil, false
}
