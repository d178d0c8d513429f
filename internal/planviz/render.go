// Package planviz draws a planning cycle (occupied cells, tree edges and
// the returned path) as an image for offline inspection.
package planviz

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"rover-planner/internal/grid"
)

// Scene is everything drawn for one cycle. Tree and Path may be empty.
type Scene struct {
	Title    string
	Grid     *grid.Grid
	Occupied grid.Label
	Tree     [][2]grid.Cell
	Path     []grid.Cell
	Goal     *grid.Cell
}

var (
	obstacleColor = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	treeColor     = color.RGBA{R: 120, G: 160, B: 220, A: 255}
	pathColor     = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	goalColor     = color.RGBA{R: 40, G: 170, B: 60, A: 255}
)

// xy places a cell in plot space: columns run left to right and row 0 is
// drawn at the top, so the vehicle sits bottom-centre as it does in the grid.
func xy(s Scene, c grid.Cell) plotter.XY {
	return plotter.XY{X: float64(c.Col), Y: float64(s.Grid.Rows - 1 - c.Row)}
}

// Build assembles the plot for s.
func Build(s Scene) (*plot.Plot, error) {
	if s.Grid == nil {
		return nil, fmt.Errorf("scene has no grid")
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Rows from far edge"
	p.X.Min, p.X.Max = -1, float64(s.Grid.Cols)
	p.Y.Min, p.Y.Max = -1, float64(s.Grid.Rows)

	var obstacles plotter.XYs
	for r := 0; r < s.Grid.Rows; r++ {
		for c := 0; c < s.Grid.Cols; c++ {
			cell := grid.Cell{Row: r, Col: c}
			if s.Grid.At(cell) == s.Occupied {
				obstacles = append(obstacles, xy(s, cell))
			}
		}
	}
	if len(obstacles) > 0 {
		sc, err := plotter.NewScatter(obstacles)
		if err != nil {
			return nil, fmt.Errorf("obstacles: %w", err)
		}
		sc.GlyphStyle.Color = obstacleColor
		sc.GlyphStyle.Shape = draw.BoxGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
	}

	for _, edge := range s.Tree {
		l, err := plotter.NewLine(plotter.XYs{xy(s, edge[0]), xy(s, edge[1])})
		if err != nil {
			return nil, fmt.Errorf("tree edge: %w", err)
		}
		l.Color = treeColor
		l.Width = vg.Points(0.5)
		p.Add(l)
	}

	if len(s.Path) > 1 {
		pts := make(plotter.XYs, len(s.Path))
		for i, c := range s.Path {
			pts[i] = xy(s, c)
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("path: %w", err)
		}
		l.Color = pathColor
		l.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add("path", l)
	}

	if s.Goal != nil {
		sc, err := plotter.NewScatter(plotter.XYs{xy(s, *s.Goal)})
		if err != nil {
			return nil, fmt.Errorf("goal: %w", err)
		}
		sc.GlyphStyle.Color = goalColor
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("goal", sc)
	}

	return p, nil
}

// WritePNG renders s as a PNG of the given size to w.
func WritePNG(w io.Writer, s Scene, width, height vg.Length) error {
	p, err := Build(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
