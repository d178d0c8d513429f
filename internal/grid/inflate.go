package grid

// Inflate grows every occupied cell into a disk of the given radius in
// cells, so a point robot planning on the result keeps its half-width clear
// of obstacles. Only cells occupied before the call seed the disks. It
// returns the number of cells newly marked.
func Inflate(g *Grid, occupied Label, radius int) int {
	if radius <= 0 {
		return 0
	}

	var seeds []Cell
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if g.cells[r*g.Cols+c] == occupied {
				seeds = append(seeds, Cell{Row: r, Col: c})
			}
		}
	}

	var disk []Cell
	for dr := -radius; dr <= radius; dr++ {
		for dc := -radius; dc <= radius; dc++ {
			if dr*dr+dc*dc <= radius*radius {
				disk = append(disk, Cell{Row: dr, Col: dc})
			}
		}
	}

	marked := 0
	for _, s := range seeds {
		for _, d := range disk {
			c := Cell{Row: s.Row + d.Row, Col: s.Col + d.Col}
			if !g.InBounds(c) || g.At(c) == occupied {
				continue
			}
			g.Set(c, occupied)
			marked++
		}
	}
	return marked
}
