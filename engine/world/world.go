// Package world lays out the discovered location graph. BuildGraph is a
// pure function of the location registry and the current location, so the
// map can be rebuilt from scratch whenever either changes.
package world

import (
	"strings"
	"unicode"

	"github.com/nathoo/wayfarer/types"
)

// Config controls the layout scale.
type Config struct {
	Spacing float64
}

// DefaultConfig returns unit spacing.
func DefaultConfig() Config {
	return Config{Spacing: 1}
}

// Point is a 2D layout coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a location on the map. Unvisited nodes are stubs: they carry a
// label but no record, and the traversal never expands past them.
type Node struct {
	ID      string                `json:"id"`
	Label   string                `json:"label"`
	Pos     Point                 `json:"pos"`
	Visited bool                  `json:"visited"`
	Record  *types.LocationRecord `json:"record,omitempty"`
}

// Edge is one traversed exit.
type Edge struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	FromPos   Point           `json:"from_pos"`
	ToPos     Point           `json:"to_pos"`
	Direction types.Direction `json:"direction"`
	Command   string          `json:"command"`
	Label     string          `json:"label"`
}

// Graph is the laid-out map. Nodes are in BFS order; Current is always the
// first node and sits at the origin.
type Graph struct {
	Current string `json:"current"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// Node looks a node up by ID.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

var vectors = map[types.Direction]Point{
	types.North:     {0, -1},
	types.South:     {0, 1},
	types.East:      {1, 0},
	types.West:      {-1, 0},
	types.Northeast: {0.7, -0.7},
	types.Northwest: {-0.7, -0.7},
	types.Southeast: {0.7, 0.7},
	types.Southwest: {-0.7, 0.7},
	types.Up:        {0.35, -0.35},
	types.Down:      {-0.35, 0.35},
}

// Vector returns the unit offset for a direction. Unknown directions map
// to the origin offset.
func Vector(d types.Direction) Point {
	return vectors[types.Direction(strings.ToLower(string(d)))]
}

var opposites = map[types.Direction]types.Direction{
	types.North:     types.South,
	types.South:     types.North,
	types.East:      types.West,
	types.West:      types.East,
	types.Northeast: types.Southwest,
	types.Southwest: types.Northeast,
	types.Northwest: types.Southeast,
	types.Southeast: types.Northwest,
	types.Up:        types.Down,
	types.Down:      types.Up,
}

// Opposite returns the reverse of d, or "" for an unknown direction.
func Opposite(d types.Direction) types.Direction {
	return opposites[types.Direction(strings.ToLower(string(d)))]
}

// ParseDirection accepts a full direction name or its short form
// ("n", "sw", "u").
func ParseDirection(s string) (types.Direction, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := shortDirections[s]; ok {
		return d, true
	}
	d := types.Direction(s)
	_, ok := vectors[d]
	return d, ok
}

var shortDirections = map[string]types.Direction{
	"n": types.North, "s": types.South, "e": types.East, "w": types.West,
	"ne": types.Northeast, "nw": types.Northwest, "se": types.Southeast, "sw": types.Southwest,
	"u": types.Up, "d": types.Down,
}

// BuildGraph lays out the graph with the default spacing.
func BuildGraph(currentID string, registry map[string]types.LocationRecord, currentExits []types.Exit) Graph {
	return DefaultConfig().BuildGraph(currentID, registry, currentExits)
}

// BuildGraph runs a breadth-first traversal from currentID at (0,0). A
// neighbor is expanded only if the registry holds its record; anything
// else becomes a stub labeled from the exit that points at it.
func (c Config) BuildGraph(currentID string, registry map[string]types.LocationRecord, currentExits []types.Exit) Graph {
	spacing := c.Spacing
	if spacing <= 0 {
		spacing = 1
	}

	g := Graph{Current: currentID}
	index := map[string]int{}

	add := func(id, label string, pos Point) int {
		n := Node{ID: id, Label: label, Pos: pos}
		if rec, ok := registry[id]; ok {
			r := rec
			n.Visited = true
			n.Record = &r
			if r.Name != "" {
				n.Label = r.Name
			}
		}
		g.Nodes = append(g.Nodes, n)
		index[id] = len(g.Nodes) - 1
		return index[id]
	}

	add(currentID, CleanLabel(currentID), Point{})
	queue := []string{currentID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		from := g.Nodes[index[id]]

		exits := currentExits
		if rec, ok := registry[id]; ok && (id != currentID || len(rec.Exits) > 0 || len(currentExits) == 0) {
			exits = rec.Exits
		} else if id != currentID {
			continue
		}

		for _, ex := range exits {
			if ex.TargetID == "" {
				continue
			}
			v := Vector(ex.Direction)
			pos := Point{X: from.Pos.X + v.X*spacing, Y: from.Pos.Y + v.Y*spacing}

			i, seen := index[ex.TargetID]
			if !seen {
				label := CleanLabel(ex.Label)
				if label == "" {
					label = CleanLabel(ex.TargetID)
				}
				i = add(ex.TargetID, label, pos)
				if g.Nodes[i].Visited {
					queue = append(queue, ex.TargetID)
				}
			}

			cmd := ex.Command
			if cmd == "" {
				cmd = "go " + string(ex.Direction)
			}
			g.Edges = append(g.Edges, Edge{
				From:      id,
				To:        ex.TargetID,
				FromPos:   from.Pos,
				ToPos:     g.Nodes[i].Pos,
				Direction: ex.Direction,
				Command:   cmd,
				Label:     ex.Label,
			})
		}
	}
	return g
}

// CleanLabel turns an exit label or location ID into a display name:
// directional prefixes ("North: ", "to the ") and parenthesized notes
// are dropped, separators become spaces, and words are title-cased.
func CleanLabel(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ":"); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	if i := strings.Index(s, "("); i > 0 {
		s = s[:i]
	}
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)

	words := strings.Fields(s)
	for len(words) > 1 {
		w := strings.ToLower(words[0])
		if w == "to" || w == "the" || w == "towards" {
			words = words[1:]
			continue
		}
		break
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Selection is the result of clicking a node.
type Selection struct {
	Center      Point
	MoveCommand string
	Move        bool
}

// Select recenters on nodeID and, when an exit leads straight there from
// the current location, returns its move command. Unknown nodes select
// nothing.
func Select(g Graph, nodeID string) (Selection, bool) {
	n, ok := g.Node(nodeID)
	if !ok {
		return Selection{}, false
	}
	sel := Selection{Center: n.Pos}
	if nodeID == g.Current {
		return sel, true
	}
	for _, e := range g.Edges {
		if e.From == g.Current && e.To == nodeID {
			sel.MoveCommand = e.Command
			sel.Move = true
			break
		}
	}
	return sel, true
}
