package grid

// Line rasterizes the discrete segment from a to b with Bresenham's
// algorithm. The result starts at a, ends at b, and consecutive cells are
// 8-connected, so every row and column between the endpoints is visited.
func Line(a, b Cell) []Cell {
	dr := abs(b.Row - a.Row)
	dc := -abs(b.Col - a.Col)
	sr, sc := 1, 1
	if a.Row > b.Row {
		sr = -1
	}
	if a.Col > b.Col {
		sc = -1
	}

	cells := make([]Cell, 0, max(dr, -dc)+1)
	r, c := a.Row, a.Col
	e := dr + dc
	for {
		cells = append(cells, Cell{Row: r, Col: c})
		if r == b.Row && c == b.Col {
			break
		}
		e2 := 2 * e
		if e2 >= dc {
			e += dc
			r += sr
		}
		if e2 <= dr {
			e += dr
			c += sc
		}
	}
	return cells
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
