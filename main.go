package main

import (
	"encoding/json"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot/vg"

	"rover-planner/internal/config"
	"rover-planner/internal/grid"
	"rover-planner/internal/planviz"
	"rover-planner/internal/rrtstar"
)

var (
	configPath = flag.String("config", "", "Path to a tuning JSON file (default: "+config.DefaultConfigPath+" if present)")
	listenAddr = flag.String("listen", "", "HTTP listen address (overrides listen_addr)")
	seed       = flag.Int64("seed", 0, "Sampling seed; 0 seeds from the clock")
	gridFile   = flag.String("grid", "grid_snapshot.json", "Grid snapshot loaded at startup and written by /grid saveToFile")
	zonesDir   = flag.String("zones", "keepout-zones", "Directory of GeoJSON keep-out polygons in the world frame")
)

type PoseRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

type RelativePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type GridRequest struct {
	Rows       [][]grid.Label `json:"rows,omitempty"`
	ASCII      []string       `json:"ascii,omitempty"`
	Pose       *PoseRequest   `json:"pose,omitempty"` // Optional: pose the grid was captured at, enables keep-out zones
	SaveToFile bool           `json:"saveToFile,omitempty"`
}

type PlanRequest struct {
	Goal         *grid.Cell     `json:"goal,omitempty"`
	GoalRelative *RelativePoint `json:"goalRelative,omitempty"`
	Pose         *PoseRequest   `json:"pose,omitempty"`     // Optional: enables the world-frame GeoJSON path
	Simplify     float64        `json:"simplify,omitempty"` // Douglas-Peucker tolerance for the GeoJSON path, world units
}

type PlanResponse struct {
	Path       []grid.Cell     `json:"path"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	RunID      string          `json:"runId"`
	Goal       grid.Cell       `json:"goal"`
	Iterations int             `json:"iterations"`
	TreeSize   int             `json:"treeSize"`
	Length     float64         `json:"length"` // path length in cells
	Steering   SteeringTarget  `json:"steering"`
	World      json.RawMessage `json:"world,omitempty"`
}

var (
	engine       *rrtstar.Engine
	engineMutex  sync.Mutex
	lastGoal     *grid.Cell
	lastPath     rrtstar.Path
	lastPlanGrid *grid.Grid
	keepOut      KeepOutZones
	tuning       *config.TuningConfig
)

// setupEngine installs a fresh engine built from cfg. A non-zero seed makes
// sampling reproducible.
func setupEngine(cfg *config.TuningConfig, seed int64) error {
	var opts []rrtstar.Option
	if seed != 0 {
		opts = append(opts, rrtstar.WithRand(rand.New(rand.NewSource(seed))))
	}
	e, err := rrtstar.New(rrtstar.ConfigFromTuning(cfg), opts...)
	if err != nil {
		return err
	}

	engineMutex.Lock()
	defer engineMutex.Unlock()
	engine = e
	tuning = cfg
	lastGoal = nil
	lastPath = nil
	lastPlanGrid = nil
	return nil
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// POST /grid - Replace the occupancy grid used by the next plan
func gridHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🗺️  Grid update received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	engineMutex.Lock()
	defer engineMutex.Unlock()

	occupied := grid.Label(tuning.GetOccupiedLabel())
	free := grid.Label(tuning.GetFreeLabel())

	var g *grid.Grid
	var err error
	switch {
	case len(req.Rows) > 0:
		g, err = grid.FromRows(req.Rows)
	case len(req.ASCII) > 0:
		g, err = grid.ParseASCIILabels(req.ASCII, occupied, free)
	default:
		err = errors.New("either rows or ascii is required")
	}
	if err != nil {
		log.Printf("❌ Invalid grid: %v\n", err)
		http.Error(w, "Invalid grid: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Pose != nil && len(keepOut) > 0 {
		pose := grid.Pose{Position: orb.Point{req.Pose.X, req.Pose.Y}, Heading: req.Pose.Heading}
		marked := keepOut.Apply(g, grid.FrameOf(g, tuning.GetCellsPerUnit()), pose, occupied)
		log.Printf("   Keep-out zones marked %d cells\n", marked)
	}
	if radius := tuning.GetInflateRadius(); radius > 0 {
		marked := grid.Inflate(g, occupied, radius)
		log.Printf("   Inflated obstacles by %d cells (%d cells marked)\n", radius, marked)
	}

	// engineMutex serializes this handler with planHandler, so the engine is
	// never PLANNING here and a non-nil grid is always accepted.
	engine.SetGrid(g)
	start := engine.Start()
	lastGoal = nil
	lastPath = nil
	lastPlanGrid = nil

	log.Printf("   Grid: %dx%d, start %v\n", g.Rows, g.Cols, start)

	if req.SaveToFile {
		if err := SaveGridSnapshot(g, tuning.GetCellsPerUnit(), *gridFile); err != nil {
			log.Printf("⚠️  Failed to save grid: %v\n", err)
		}
	}

	log.Println("========================================")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rows":    g.Rows,
		"cols":    g.Cols,
		"start":   start,
	})
}

// POST /plan - Plan from the vehicle cell to a goal
func planHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("📍 Plan request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Goal == nil && req.GoalRelative == nil {
		log.Println("❌ No goal in request")
		http.Error(w, "Either goal or goalRelative is required", http.StatusBadRequest)
		return
	}

	engineMutex.Lock()
	defer engineMutex.Unlock()

	g := engine.Grid()
	if g == nil {
		log.Println("❌ Grid not available")
		http.Error(w, "Grid not set. Call /grid first", http.StatusBadRequest)
		log.Println("========================================")
		return
	}
	frame, _ := engine.Frame()

	var goal grid.Cell
	if req.Goal != nil {
		goal = *req.Goal
	} else {
		goal = frame.RelativeToGrid(r2.Vec{X: req.GoalRelative.X, Y: req.GoalRelative.Y})
	}
	goal = g.Clamp(goal)
	lastGoal = &goal

	log.Printf("   Start: %v\n", engine.Start())
	log.Printf("   Goal:  %v\n", goal)

	path, ok := engine.Plan(goal)
	stats := engine.Stats()
	lastPath = path
	lastPlanGrid = g

	response := PlanResponse{
		Path:       path,
		Success:    ok,
		RunID:      stats.RunID,
		Goal:       goal,
		Iterations: stats.Iterations,
		TreeSize:   stats.TreeSize,
		Length:     path.Length(),
		Steering:   computeSteeringTarget(path, ok, g, tuning.GetForwardNudge()),
	}
	if response.Path == nil {
		response.Path = []grid.Cell{}
	}

	if !ok {
		log.Printf("❌ No path found: %v\n", stats.Err)
		response.Message = "No path found this cycle"
	} else {
		log.Printf("✅ Path found with %d waypoints (%d iterations, tree %d)\n",
			len(path), stats.Iterations, stats.TreeSize)
		if req.Pose != nil {
			pose := grid.Pose{Position: orb.Point{req.Pose.X, req.Pose.Y}, Heading: req.Pose.Heading}
			fc := worldPathCollection(path, engine.Start(), frame, pose, req.Simplify, stats.RunID)
			if raw, err := fc.MarshalJSON(); err == nil {
				response.World = raw
			} else {
				log.Printf("⚠️  Failed to encode world path: %v\n", err)
			}
		}
	}

	log.Println("========================================")
	writeJSON(w, http.StatusOK, response)
}

// GET /treeLines - Edges of the last planning tree for visualization
func treeLinesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engineMutex.Lock()
	tree := engine.Tree()
	var lines [][]grid.Cell
	numNodes := 0
	if tree != nil {
		lines = TreeAsLineStrings(tree)
		numNodes = tree.Len()
	}
	engineMutex.Unlock()

	if tree == nil {
		http.Error(w, "No plan has run yet. Call /plan first", http.StatusBadRequest)
		return
	}

	log.Printf("📊 Returning %d tree edges\n", len(lines))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"lines":    lines,
		"numNodes": numNodes,
		"numEdges": len(lines),
	})
}

// currentScene assembles the plot for the installed grid. The last tree,
// path and goal are drawn only when they were planned on that grid.
// Callers hold engineMutex.
func currentScene() planviz.Scene {
	scene := planviz.Scene{
		Grid:     engine.Grid(),
		Occupied: engine.Config().OccupiedLabel,
	}
	if lastPlanGrid == nil || lastPlanGrid != scene.Grid {
		return scene
	}
	scene.Title = "Run " + engine.Stats().RunID
	scene.Goal = lastGoal
	scene.Path = lastPath
	if tree := engine.Tree(); tree != nil {
		scene.Tree = tree.Edges()
	}
	return scene
}

// GET /treePlot - PNG of the grid, last tree and last path
func treePlotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engineMutex.Lock()
	scene := currentScene()
	engineMutex.Unlock()

	if scene.Grid == nil {
		http.Error(w, "Grid not set. Call /grid first", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := planviz.WritePNG(w, scene, 6*vg.Inch, 6*vg.Inch); err != nil {
		log.Printf("❌ Failed to render plot: %v\n", err)
	}
}

// GET /health - Health check endpoint
func healthHandler(w http.ResponseWriter, r *http.Request) {
	engineMutex.Lock()
	state := engine.State()
	g := engine.Grid()
	treeSize := 0
	if tree := engine.Tree(); tree != nil {
		treeSize = tree.Len()
	}
	engineMutex.Unlock()

	status := "ready"
	if g == nil {
		status = "waiting for grid"
	}
	resp := map[string]interface{}{
		"status":   status,
		"state":    state.String(),
		"hasGrid":  g != nil,
		"treeSize": treeSize,
	}
	if g != nil {
		resp["rows"] = g.Rows
		resp["cols"] = g.Cols
	}
	writeJSON(w, http.StatusOK, resp)
}

func loadTuning() (*config.TuningConfig, error) {
	if *configPath != "" {
		return config.LoadTuningConfig(*configPath)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.LoadTuningConfig(config.DefaultConfigPath)
	}
	return config.DefaultTuningConfig(), nil
}

func main() {
	flag.Parse()

	log.Println("========================================")
	log.Println("🚀 Rover Motion Planner Server (RRT*)")
	log.Println("========================================")

	cfg, err := loadTuning()
	if err != nil {
		log.Fatalf("❌ Failed to load tuning: %v", err)
	}
	if err := setupEngine(cfg, *seed); err != nil {
		log.Fatalf("❌ Invalid planner configuration: %v", err)
	}
	log.Printf("   Step: %.1f cells, radius: %.1f cells, max iterations: %d\n",
		cfg.GetRRTStep(), cfg.GetRRTRadius(), cfg.GetRRTMaxIterations())

	if zones, err := loadKeepOutZones(*zonesDir); err == nil {
		engineMutex.Lock()
		keepOut = zones
		engineMutex.Unlock()
	} else {
		log.Printf("⚠️  Failed to load keep-out zones: %v\n", err)
	}

	log.Println("Checking for existing grid snapshot...")
	if g, err := LoadGridSnapshot(*gridFile); err == nil {
		engine.SetGrid(g)
		log.Printf("✅ Loaded grid snapshot %dx%d\n", g.Rows, g.Cols)
	} else {
		log.Println("ℹ️  No grid snapshot found (this is normal on first run)")
		log.Println("   Call /grid to install a grid")
	}
	log.Println("")

	http.HandleFunc("/grid", corsMiddleware(gridHandler))
	http.HandleFunc("/plan", corsMiddleware(planHandler))
	http.HandleFunc("/treeLines", corsMiddleware(treeLinesHandler))
	http.HandleFunc("/treePlot", corsMiddleware(treePlotHandler))
	http.HandleFunc("/health", corsMiddleware(healthHandler))

	addr := cfg.GetListenAddr()
	if *listenAddr != "" {
		addr = *listenAddr
	}

	log.Printf("Server starting on %s\n", addr)
	log.Println("")
	log.Println("Endpoints:")
	log.Println("  POST /grid       - Install an occupancy grid")
	log.Println("  POST /plan       - Plan from the vehicle cell to a goal")
	log.Println("  GET  /treeLines  - Edges of the last planning tree")
	log.Println("  GET  /treePlot   - PNG of the last planning cycle")
	log.Println("  GET  /health     - Check server status")
	log.Println("========================================")
	log.Println("")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
