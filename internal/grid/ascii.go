package grid

import (
	"fmt"
	"strings"
)

// ParseASCII builds a grid from text rows: '.' is free, '#' is occupied and
// '?' is unknown. Unknown cells are stored as Occupied, the producer
// convention the planner expects.
func ParseASCII(lines []string) (*Grid, error) {
	return ParseASCIILabels(lines, Occupied, Free)
}

// ParseASCIILabels is ParseASCII for grids that use their own occupied and
// free labels.
func ParseASCIILabels(lines []string, occupied, free Label) (*Grid, error) {
	rows := make([][]Label, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		row := make([]Label, 0, len(line))
		for j, ch := range line {
			switch ch {
			case '.':
				row = append(row, free)
			case '#', '?':
				row = append(row, occupied)
			default:
				return nil, fmt.Errorf("line %d col %d: unexpected character %q", i, j, ch)
			}
		}
		rows = append(rows, row)
	}
	return FromRows(rows)
}

// ASCII renders the grid using the ParseASCII alphabet. Cells whose label is
// neither Free nor Occupied are written as '?'.
func (g *Grid) ASCII() []string {
	out := make([]string, g.Rows)
	var sb strings.Builder
	for r := 0; r < g.Rows; r++ {
		sb.Reset()
		for c := 0; c < g.Cols; c++ {
			switch g.At(Cell{Row: r, Col: c}) {
			case Free:
				sb.WriteByte('.')
			case Occupied:
				sb.WriteByte('#')
			default:
				sb.WriteByte('?')
			}
		}
		out[r] = sb.String()
	}
	return out
}
