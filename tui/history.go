package tui

import "strings"

// History is a fixed-size ring of submitted lines for Up/Down recall.
type History struct {
	ring  []string
	start int // oldest entry
	n     int
	pos   int // steps back from the newest entry while browsing; 0 = fresh input
}

// NewHistory creates a history that keeps the last size lines.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{ring: make([]string, size)}
}

// Len reports how many lines are stored.
func (h *History) Len() int { return h.n }

// at returns the i-th stored line, oldest first.
func (h *History) at(i int) string {
	return h.ring[(h.start+i)%len(h.ring)]
}

// Push records a line. Repeating the newest line is a no-op.
func (h *History) Push(line string) {
	if h.n > 0 && h.at(h.n-1) == line {
		return
	}
	if h.n < len(h.ring) {
		h.ring[(h.start+h.n)%len(h.ring)] = line
		h.n++
		return
	}
	h.ring[h.start] = line
	h.start = (h.start + 1) % len(h.ring)
}

// Prev steps back toward the oldest line and stays there once reached.
func (h *History) Prev() (string, bool) {
	if h.n == 0 {
		return "", false
	}
	if h.pos < h.n {
		h.pos++
	}
	return h.at(h.n - h.pos), true
}

// Next steps toward the newest line. Stepping past it returns ("", false)
// and leaves the player at fresh input.
func (h *History) Next() (string, bool) {
	if h.pos == 0 {
		return "", false
	}
	h.pos--
	if h.pos == 0 {
		return "", false
	}
	return h.at(h.n - h.pos), true
}

// ResetCursor stops browsing.
func (h *History) ResetCursor() {
	h.pos = 0
}

// Repeatable returns the newest line "again" can replay: a game command,
// not a meta command or another "again".
func (h *History) Repeatable() (string, bool) {
	for i := h.n - 1; i >= 0; i-- {
		line := h.at(i)
		if !strings.HasPrefix(line, "/") && !isAgain(line) {
			return line, true
		}
	}
	return "", false
}

func isAgain(line string) bool {
	line = strings.TrimSpace(line)
	return strings.EqualFold(line, "again") || strings.EqualFold(line, "g")
}
