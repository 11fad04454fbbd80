package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/wayfarer/engine/world"
)

// mapPanelWidth includes the panel's border and padding.
const mapPanelWidth = 32

// renderMap draws the fog-of-war map around the player followed by the
// name of the current location.
func (m Model) renderMap(height int) string {
	inner := mapPanelWidth - 2
	g := m.view.graph

	rows := height - 2
	if rows < 1 {
		rows = 1
	}
	grid := world.Render(g, inner, rows)

	var b strings.Builder
	for i, line := range strings.Split(grid, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(colorMapLine(line))
	}
	if n, ok := g.Node(g.Current); ok {
		b.WriteString("\n\n")
		b.WriteString(styleMapCurrent.Render(truncate(n.Label, inner)))
	}
	return styleMapPanel.Width(mapPanelWidth - 1).Height(height).MaxHeight(height).Render(b.String())
}

func colorMapLine(line string) string {
	var b strings.Builder
	for _, r := range line {
		switch r {
		case world.GlyphCurrent:
			b.WriteString(styleMapCurrent.Render(string(r)))
		case world.GlyphVisited:
			b.WriteString(styleMapVisited.Render(string(r)))
		case world.GlyphStub, world.GlyphPath:
			b.WriteString(styleMapStub.Render(string(r)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if width < 1 {
		return ""
	}
	if len(r) >= width {
		r = r[:width-1]
	}
	return string(r) + "~"
}

// joinMap places the map panel to the right of the narrative.
func joinMap(narrative, panel string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, narrative, panel)
}
