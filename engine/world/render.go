package world

import (
	"math"
	"strings"
)

// Map glyphs.
const (
	GlyphCurrent = '@'
	GlyphVisited = 'o'
	GlyphStub    = '?'
	GlyphPath    = '.'
)

// Render draws g on a width x height character grid centered on the
// current node. Horizontal steps take four columns and vertical steps two
// rows so the map reads square in a terminal. Nodes that fall off the
// grid are clipped.
func Render(g Graph, width, height int) string {
	if width < 1 || height < 1 {
		return ""
	}
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	cx, cy := width/2, height/2
	cell := func(p Point) (int, int) {
		return cx + int(math.Round(p.X*4)), cy + int(math.Round(p.Y*2))
	}
	put := func(x, y int, r rune) {
		if y >= 0 && y < height && x >= 0 && x < width {
			grid[y][x] = r
		}
	}

	for _, e := range g.Edges {
		x0, y0 := cell(e.FromPos)
		x1, y1 := cell(e.ToPos)
		steps := max(abs(x1-x0), abs(y1-y0))
		for i := 1; i < steps; i++ {
			x := x0 + int(math.Round(float64((x1-x0)*i)/float64(steps)))
			y := y0 + int(math.Round(float64((y1-y0)*i)/float64(steps)))
			put(x, y, GlyphPath)
		}
	}
	for _, n := range g.Nodes {
		x, y := cell(n.Pos)
		switch {
		case n.ID == g.Current:
			put(x, y, GlyphCurrent)
		case n.Visited:
			put(x, y, GlyphVisited)
		default:
			put(x, y, GlyphStub)
		}
	}

	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
