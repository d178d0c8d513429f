package rrtstar

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rover-planner/internal/grid"
	"rover-planner/internal/monitoring"
)

func testConfig() Config {
	return Config{
		StepSize:       2,
		NeighborRadius: 5,
		MaxIterations:  2000,
		CellsPerUnit:   10,
		OccupiedLabel:  grid.Occupied,
	}
}

func newTestEngine(t *testing.T, cfg Config, seed int64, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(seed)))}, opts...)
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func filledGrid(t *testing.T, rows, cols int, fill grid.Label) *grid.Grid {
	t.Helper()
	g, err := grid.New(rows, cols, fill)
	require.NoError(t, err)
	return g
}

// wallGrid returns a 20x20 grid with row 10 blocked except column 15.
func wallGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g := filledGrid(t, 20, 20, grid.Free)
	for c := 0; c < 20; c++ {
		if c != 15 {
			g.Set(grid.Cell{Row: 10, Col: c}, grid.Occupied)
		}
	}
	return g
}

// checkTree asserts the structural properties every finished plan must
// leave behind.
func checkTree(t *testing.T, e *Engine) {
	t.Helper()
	tree := e.Tree()
	require.NotNil(t, tree)
	require.NoError(t, tree.Validate(1e-9))
	for _, edge := range tree.Edges() {
		assert.False(t, SegmentCollides(e.Grid(), edge[0], edge[1], e.Config().OccupiedLabel),
			"tree edge %v -> %v collides", edge[0], edge[1])
	}
	for id := 0; id < tree.Len(); id++ {
		assert.True(t, e.Grid().InBounds(tree.Node(id).Pos), "node %d out of bounds", id)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.StepSize = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.MaxIterations = -1
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestPlanWithoutGrid(t *testing.T) {
	e := newTestEngine(t, testConfig(), 1)
	assert.Equal(t, Idle, e.State())

	path, ok := e.Plan(grid.Cell{Row: 0, Col: 0})
	assert.False(t, ok)
	assert.Nil(t, path)
	assert.ErrorIs(t, e.Stats().Err, ErrNoGrid)
	assert.Equal(t, Idle, e.State())
}

func TestPlanShortcut(t *testing.T) {
	e := newTestEngine(t, testConfig(), 1)
	require.True(t, e.SetGrid(filledGrid(t, 20, 20, grid.Free)))
	assert.Equal(t, Ready, e.State())

	path, ok := e.Plan(grid.Cell{Row: 0, Col: 10})
	require.True(t, ok)
	if diff := cmp.Diff(Path{{Row: 19, Col: 10}, {Row: 0, Col: 10}}, path); diff != "" {
		t.Errorf("shortcut path mismatch (-want +got):\n%s", diff)
	}

	stats := e.Stats()
	assert.True(t, stats.Shortcut)
	assert.Zero(t, stats.Attempts)
	assert.Equal(t, 1, e.Tree().Len(), "no tree growth on the shortcut")
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, Ready, e.State())

	next, ok := path.Next()
	require.True(t, ok)
	assert.Equal(t, grid.Cell{Row: 0, Col: 10}, next)
}

func TestPlanShortcutAnyClearGoal(t *testing.T) {
	g, err := grid.ParseASCII([]string{
		"..........",
		"..####....",
		"..........",
		"..........",
		"..........",
	})
	require.NoError(t, err)

	e := newTestEngine(t, testConfig(), 1)
	require.True(t, e.SetGrid(g))
	start := g.Start()

	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			goal := grid.Cell{Row: r, Col: c}
			if SegmentCollides(g, start, goal, grid.Occupied) {
				continue
			}
			path, ok := e.Plan(goal)
			require.True(t, ok)
			assert.Equal(t, Path{start, goal}, path)
			assert.Equal(t, 1, e.Tree().Len())
		}
	}
}

func TestPlanStartBlocked(t *testing.T) {
	g := filledGrid(t, 20, 20, grid.Free)
	g.Set(g.Start(), grid.Occupied)

	e := newTestEngine(t, testConfig(), 1)
	require.True(t, e.SetGrid(g))

	for _, goal := range []grid.Cell{{Row: 0, Col: 10}, {Row: 18, Col: 10}, {Row: 5, Col: 3}} {
		path, ok := e.Plan(goal)
		assert.False(t, ok)
		assert.Nil(t, path)
		assert.ErrorIs(t, e.Stats().Err, ErrStartBlocked)
		assert.Equal(t, 1, e.Tree().Len())
		assert.Zero(t, e.Stats().Attempts)
	}
}

func TestPlanFullyOccupiedExhaustsStagnation(t *testing.T) {
	g := filledGrid(t, 20, 20, grid.Occupied)
	g.Set(g.Start(), grid.Free)

	e := newTestEngine(t, testConfig(), 7)
	require.True(t, e.SetGrid(g))

	path, ok := e.Plan(grid.Cell{Row: 0, Col: 10})
	assert.False(t, ok)
	assert.Nil(t, path)

	stats := e.Stats()
	assert.ErrorIs(t, stats.Err, ErrStagnation)
	assert.Equal(t, StagnationLimit+1, stats.Attempts, "fails only after the stagnation budget is spent")
	assert.Equal(t, stats.Attempts, stats.Rejections)
	assert.Equal(t, 1, e.Tree().Len())
	assert.Equal(t, Ready, e.State())
}

func TestPlanThroughGap(t *testing.T) {
	g := wallGrid(t)
	goal := grid.Cell{Row: 0, Col: 10}
	gap := grid.Cell{Row: 10, Col: 15}

	successes := 0
	for seed := int64(1); seed <= 10; seed++ {
		e := newTestEngine(t, testConfig(), seed)
		require.True(t, e.SetGrid(g))

		path, ok := e.Plan(goal)
		checkTree(t, e)
		if !ok {
			assert.Contains(t, []error{ErrStagnation, ErrIterationBudget}, e.Stats().Err)
			continue
		}
		successes++
		assert.False(t, e.Stats().Shortcut)

		// The tree path begins at the terminal node and ends at the start.
		require.GreaterOrEqual(t, len(path), 2)
		assert.Equal(t, g.Start(), path[len(path)-1])
		assert.False(t, SegmentCollides(g, path[0], goal, grid.Occupied), "terminal node must see the goal")

		// Read from the root, through the terminal node, to the goal: the
		// route has to cross the wall at the gap.
		route := append(reversed(path), goal)
		var crossed bool
		for i := 1; i < len(route); i++ {
			assert.False(t, SegmentCollides(g, route[i-1], route[i], grid.Occupied),
				"seed %d: leg %v -> %v collides", seed, route[i-1], route[i])
			for _, c := range grid.Line(route[i-1], route[i]) {
				if c == gap {
					crossed = true
				}
			}
		}
		assert.True(t, crossed, "seed %d: route %v does not pass the gap", seed, route)
	}
	assert.NotZero(t, successes, "no seed found a path through the gap")
}

func TestPlanInvariantsWithUnreachableGoal(t *testing.T) {
	g, err := grid.ParseASCII([]string{
		"..............................",
		"..............................",
		".....#####..........#####.....",
		".....#####..........#####.....",
		"..............................",
		"..............................",
		"..........##########..........",
		"..........##########..........",
		"..............................",
		"..............................",
		"..............................",
		"...###...............####.....",
		"...###...............####.....",
		"..............................",
		"..............................",
		"..............................",
		"..............................",
		"..........#####...............",
		"..............................",
		"..............................",
	})
	require.NoError(t, err)
	// The goal cell itself is blocked, so no candidate can ever see it.
	goal := grid.Cell{Row: 6, Col: 15}

	cfg := testConfig()
	cfg.StepSize = 3
	cfg.NeighborRadius = 8
	cfg.MaxIterations = 300

	lastCost := map[int]float64{}
	var increases []int
	hook := func(node int, oldCost, newCost float64) {
		if newCost >= oldCost {
			increases = append(increases, node)
		}
		if prev, seen := lastCost[node]; seen && newCost > prev {
			increases = append(increases, node)
		}
		lastCost[node] = newCost
	}

	for seed := int64(1); seed <= 3; seed++ {
		clear(lastCost)
		e := newTestEngine(t, cfg, seed, WithRewireHook(hook))
		require.True(t, e.SetGrid(g))

		path, ok := e.Plan(goal)
		assert.False(t, ok)
		assert.Nil(t, path)
		checkTree(t, e)

		stats := e.Stats()
		switch stats.Err {
		case ErrIterationBudget:
			assert.Equal(t, cfg.MaxIterations, stats.Iterations)
			assert.Equal(t, cfg.MaxIterations+1, e.Tree().Len())
		case ErrStagnation:
			assert.Less(t, stats.Iterations, cfg.MaxIterations)
		default:
			t.Fatalf("unexpected failure kind %v", stats.Err)
		}
		assert.Equal(t, e.Tree().Len(), stats.TreeSize)
	}
	assert.Empty(t, increases, "rewiring must never raise a cost")
}

func TestPlanBoundaryRejection(t *testing.T) {
	// A one-row corridor: most extensions step off the grid and are rejected.
	g := filledGrid(t, 3, 30, grid.Free)
	g.Set(grid.Cell{Row: 2, Col: 20}, grid.Occupied)
	g.Set(grid.Cell{Row: 1, Col: 20}, grid.Occupied)
	g.Set(grid.Cell{Row: 0, Col: 20}, grid.Occupied)

	cfg := testConfig()
	cfg.StepSize = 4
	cfg.MaxIterations = 100
	e := newTestEngine(t, cfg, 3)
	require.True(t, e.SetGrid(g))

	_, ok := e.Plan(grid.Cell{Row: 0, Col: 29})
	assert.False(t, ok)
	checkTree(t, e)
	assert.Positive(t, e.Stats().Rejections)
}

func TestPlanResetsTreeEachCall(t *testing.T) {
	e := newTestEngine(t, testConfig(), 5)
	require.True(t, e.SetGrid(wallGrid(t)))

	e.Plan(grid.Cell{Row: 0, Col: 10})
	firstRun := e.Stats().RunID

	require.True(t, e.SetGrid(filledGrid(t, 20, 20, grid.Free)))
	path, ok := e.Plan(grid.Cell{Row: 0, Col: 3})
	require.True(t, ok)
	assert.Equal(t, Path{{Row: 19, Col: 10}, {Row: 0, Col: 3}}, path)
	assert.Equal(t, 1, e.Tree().Len())
	assert.NotEqual(t, firstRun, e.Stats().RunID)
}

func TestBusyEngineIgnoresMutations(t *testing.T) {
	e := newTestEngine(t, testConfig(), 1)
	original := wallGrid(t)
	require.True(t, e.SetGrid(original))

	e.state = Planning
	assert.False(t, e.SetGrid(filledGrid(t, 5, 5, grid.Free)), "grid swap must be ignored while planning")
	assert.Same(t, original, e.Grid())
	assert.ErrorIs(t, e.SetConfig(testConfig()), ErrBusy)

	e.state = Ready
	assert.True(t, e.SetGrid(filledGrid(t, 5, 5, grid.Free)))
	assert.Equal(t, grid.Cell{Row: 4, Col: 2}, e.Start())
}

func TestSetGridDuringPlanIsIgnored(t *testing.T) {
	original := wallGrid(t)
	replacement := filledGrid(t, 20, 20, grid.Free)

	var e *Engine
	var attempts, accepted int
	hook := func(int, float64, float64) {
		attempts++
		if e.SetGrid(replacement) {
			accepted++
		}
		assert.Equal(t, Planning, e.State())
	}
	e = newTestEngine(t, testConfig(), 11, WithRewireHook(hook))
	require.True(t, e.SetGrid(original))

	e.Plan(grid.Cell{Row: 0, Col: 10})
	assert.Zero(t, accepted, "SetGrid accepted %d of %d mid-plan swaps", accepted, attempts)
	assert.Same(t, original, e.Grid())
	assert.Equal(t, Ready, e.State())
}

func TestSetConfig(t *testing.T) {
	e := newTestEngine(t, testConfig(), 1)

	cfg := testConfig()
	cfg.NeighborRadius = -1
	assert.Error(t, e.SetConfig(cfg))

	cfg = testConfig()
	cfg.StepSize = 3
	require.NoError(t, e.SetConfig(cfg))
	assert.Equal(t, 3.0, e.Config().StepSize)
}

func TestEngineFrame(t *testing.T) {
	e := newTestEngine(t, testConfig(), 1)
	_, ok := e.Frame()
	assert.False(t, ok)

	require.True(t, e.SetGrid(filledGrid(t, 20, 20, grid.Free)))
	f, ok := e.Frame()
	require.True(t, ok)
	assert.Equal(t, grid.Frame{Rows: 20, Cols: 20, CellsPerUnit: 10}, f)
}

func TestPathHelpers(t *testing.T) {
	_, ok := Path(nil).Next()
	assert.False(t, ok)
	_, ok = Path{{Row: 1, Col: 1}}.Next()
	assert.False(t, ok)

	p := Path{{Row: 0, Col: 0}, {Row: 3, Col: 4}, {Row: 3, Col: 10}}
	next, ok := p.Next()
	require.True(t, ok)
	assert.Equal(t, grid.Cell{Row: 3, Col: 4}, next)
	assert.InDelta(t, 11.0, p.Length(), 1e-9)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "ready", Ready.String())
	assert.True(t, strings.HasPrefix(Planning.String(), "plan"))
}

func reversed(p Path) Path {
	out := make(Path, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}

func TestPlanLogsOutcome(t *testing.T) {
	original := monitoring.Logf
	defer func() { monitoring.Logf = original }()
	var rec monitoring.Recorder
	monitoring.SetLogger(rec.Logf)

	e := newTestEngine(t, testConfig(), 1)
	require.True(t, e.SetGrid(filledGrid(t, 20, 20, grid.Free)))
	_, ok := e.Plan(grid.Cell{Row: 0, Col: 10})
	require.True(t, ok)

	lines := rec.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], e.Stats().RunID)
	assert.Contains(t, lines[0], "direct line to goal")

	require.True(t, e.SetGrid(filledGrid(t, 20, 20, grid.Occupied)))
	_, ok = e.Plan(grid.Cell{Row: 0, Col: 10})
	require.False(t, ok)

	lines = rec.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], e.Stats().RunID)
	assert.Contains(t, lines[1], ErrStartBlocked.Error())
}
