// Package tui provides a Bubble Tea terminal UI for wayfarer sessions: a
// scrolling narrative, a status bar with HP/MP/AP gauges, an optional
// mini-map panel, and real-time combat driven by tea.Tick.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

const defaultSlot = "quicksave"

// Options configures a Model.
type Options struct {
	Store      store.Store // nil disables /save and /load
	TickPeriod time.Duration
	Trace      bool
	ShowMap    bool
}

// rawLine stores an unstyled output line with its classification,
// so we can re-wrap and re-style when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // true for echoed player input
	isSystem bool // true for system messages
}

// Model is the Bubble Tea model for a wayfarer session.
//
// The session is not goroutine-safe. Narrative-bound calls run as
// commands off the update loop; while one is in flight busy is set and
// Update leaves the session alone. View never reads the session: it
// renders the sessionView taken by whichever goroutine touched it last.
type Model struct {
	ctx   context.Context
	sess  *session.Session
	store store.Store
	tick  time.Duration

	viewport viewport.Model
	input    textinput.Model
	history  *History
	view     sessionView

	rawLines []rawLine // accumulated narrative lines (unstyled, for re-wrapping)

	width    int
	height   int
	ready    bool
	trace    bool
	showMap  bool
	quitting bool
	busy     bool
	ticking  bool
}

// sessionView is the part of the session the status bar and map draw.
type sessionView struct {
	stats    types.PlayerStats
	combat   types.CombatState
	inCombat bool
	graph    world.Graph
}

// snapshot must run on the goroutine that currently owns sess.
func snapshot(sess *session.Session) sessionView {
	st, open := sess.Combat()
	return sessionView{
		stats:    sess.Stats(),
		combat:   st,
		inCombat: open,
		graph:    sess.Graph(),
	}
}

// stepMsg carries the result of a session call back into Update.
type stepMsg struct {
	input  string // echoed player input (empty for the opening)
	result types.Result
	err    error
	view   sessionView
}

// combatTickMsg advances an open encounter by one step.
type combatTickMsg struct{}

// New creates a TUI model for sess. The session is initialized by Init.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	tick := opts.TickPeriod
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	return Model{
		ctx:     ctx,
		sess:    sess,
		store:   opts.Store,
		tick:    tick,
		input:   ti,
		history: NewHistory(100),
		trace:   opts.Trace,
		showMap: opts.ShowMap,
		busy:    true,
	}
}

// Run starts the Bubble Tea program and blocks until the player quits or
// ctx is cancelled.
func Run(ctx context.Context, sess *session.Session, opts Options) error {
	m := New(ctx, sess, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init starts the cursor blinking and asks the session for its opening.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialize())
}

func (m Model) initialize() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		res, err := sess.Initialize(ctx)
		return stepMsg{result: res, err: err, view: snapshot(sess)}
	}
}

func (m Model) step(input string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		res, err := sess.Step(ctx, input)
		return stepMsg{input: input, result: res, err: err, view: snapshot(sess)}
	}
}

// scheduleTick queues the next combat tick unless one is already queued.
func (m Model) scheduleTick() (Model, tea.Cmd) {
	if m.ticking {
		return m, nil
	}
	if !m.view.inCombat {
		return m, nil
	}
	m.ticking = true
	return m, tea.Tick(m.tick, func(time.Time) tea.Msg { return combatTickMsg{} })
}

// Update handles messages (key presses, window resize, session output,
// combat ticks).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // 1 status bar + 1 input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.narrativeWidth(), vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.narrativeWidth()
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "tab":
			m.showMap = !m.showMap
			if m.ready {
				m.viewport.Width = m.narrativeWidth()
				m.refreshViewport()
			}
			return m, nil

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case stepMsg:
		m.busy = false
		m.view = msg.view
		if msg.err != nil {
			logging.For("tui").WithError(msg.err).Warn("session call failed")
			m = m.appendLines(msg.input, []string{fmt.Sprintf("Error: %v", msg.err)}, true)
		} else {
			m = m.appendResult(msg.input, msg.result)
		}
		var tickCmd tea.Cmd
		m, tickCmd = m.scheduleTick()
		cmds = append(cmds, tickCmd)

	case combatTickMsg:
		m.ticking = false
		if m.busy {
			// Retry once the running call has returned.
			var tickCmd tea.Cmd
			m, tickCmd = m.scheduleTick()
			return m, tickCmd
		}
		st, open := m.sess.Combat()
		if !open || st.Turn == types.ActorPlayer || st.Turn == types.ActorPet {
			return m, nil
		}
		res := m.sess.TickCombat()
		m.view = snapshot(m.sess)
		if len(res.Output) > 0 {
			m = m.appendResult("", res)
		}
		var tickCmd tea.Cmd
		m, tickCmd = m.scheduleTick()
		return m, tickCmd
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" || m.busy {
		return m, nil
	}
	m.input.SetValue("")

	m.history.Push(input)
	m.history.ResetCursor()

	if isAgain(input) {
		prev, ok := m.history.Repeatable()
		if !ok {
			m = m.appendLines(input, []string{"Nothing to repeat."}, true)
			return m, nil
		}
		input = prev
	}

	// Meta-commands.
	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m.view = snapshot(m.sess)
		m = m.appendLines(input, output, true)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	m.busy = true
	return m, m.step(input)
}

// appendResult adds a session result, styled by event type.
func (m Model) appendResult(input string, res types.Result) Model {
	if input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + input, isInput: true})
	}
	for _, e := range res.Events {
		if e.Text == "" {
			continue
		}
		for _, line := range strings.Split(e.Text, "\n") {
			m.rawLines = append(m.rawLines, rawLine{text: line, kind: kindForEvent(e.Type, line)})
		}
	}
	if m.trace {
		for _, line := range formatTrace(res) {
			m.rawLines = append(m.rawLines, rawLine{text: line, kind: kindTrace})
		}
	}
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// appendLines adds plain lines, used for meta-command output.
func (m Model) appendLines(input string, lines []string, isSystem bool) Model {
	if input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + input, isInput: true})
	}
	for _, line := range lines {
		rl := rawLine{text: line, isSystem: isSystem}
		if !isSystem {
			rl.kind = classifyLine(line)
		}
		m.rawLines = append(m.rawLines, rl)
	}

	// Blank line separator between turns.
	m.rawLines = append(m.rawLines, rawLine{})
	m.refreshViewport()
	return m
}

// narrativeWidth is the viewport width left beside the map panel.
func (m Model) narrativeWidth() int {
	if m.showMap && m.width >= mapPanelWidth*2 {
		return m.width - mapPanelWidth
	}
	return m.width
}

// refreshViewport re-wraps and re-styles all raw lines at the current width
// and updates the viewport content.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.narrativeWidth()
	if width < 10 {
		width = 10
	}

	var styled []string
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordWrap(rl.text, width)

		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap wraps text to fit within the given width, breaking at word
// boundaries.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	var result strings.Builder
	words := strings.Fields(text)
	lineLen := 0

	for i, word := range words {
		wLen := len(word)

		if i == 0 {
			result.WriteString(word)
			lineLen = wLen
			continue
		}

		if lineLen+1+wLen > width {
			result.WriteString("\n")
			result.WriteString(word)
			lineLen = wLen
		} else {
			result.WriteString(" ")
			result.WriteString(word)
			lineLen += 1 + wLen
		}
	}

	return result.String()
}

// View renders the full layout: narrative (and map) + status bar + input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if m.narrativeWidth() < m.width {
		body = joinMap(body, m.renderMap(m.viewport.Height))
	}
	return body + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true

	case "/save":
		return m.cmdSave(arg), false

	case "/load":
		return m.cmdLoad(arg), false

	case "/saves":
		return m.cmdSaves(), false

	case "/help":
		return m.cmdHelp(), false

	case "/state":
		return m.cmdState(), false

	case "/map":
		m.showMap = !m.showMap
		if m.ready {
			m.viewport.Width = m.narrativeWidth()
		}
		if m.showMap {
			return []string{"Map shown."}, false
		}
		return []string{"Map hidden."}, false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false

	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(slot string) []string {
	if m.store == nil {
		return []string{"Saving is disabled."}
	}
	if slot == "" {
		slot = defaultSlot
	}
	b, err := m.sess.Snapshot()
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if _, err := m.store.Put(m.ctx, slot, b); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", slot)}
}

func (m *Model) cmdLoad(slot string) []string {
	if m.store == nil {
		return []string{"Loading is disabled."}
	}
	if slot == "" {
		slot = defaultSlot
	}
	b, err := m.store.Get(m.ctx, slot)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []string{fmt.Sprintf("No save named %s.", slot)}
		}
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := m.sess.Restore(b); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}

	output := []string{fmt.Sprintf("Game loaded from %s.", slot)}
	return append(output, m.sess.Look().Output...)
}

func (m *Model) cmdSaves() []string {
	if m.store == nil {
		return []string{"Saving is disabled."}
	}
	entries, err := m.store.List(m.ctx)
	if err != nil {
		return []string{fmt.Sprintf("Listing saves failed: %v", err)}
	}
	if len(entries) == 0 {
		return []string{"No saves yet."}
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s  %s  %s", e.Slot, e.SavedAt.Local().Format("2006-01-02 15:04"), e.Game))
	}
	return out
}

func (m *Model) cmdHelp() []string {
	return []string{
		"System:",
		"  /save [slot]  Save game (default: quicksave)",
		"  /load [slot]  Load game (default: quicksave)",
		"  /saves        List saves",
		"  /map          Toggle the map panel (or press Tab)",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current state",
		"  /trace        Toggle event trace output",
		"",
		"Exploring:",
		"  look (l) [thing], go <dir|place>, explore",
		"  take / drop / use / equip / unequip <item>",
		"  talk <npc>, turnin <quest>, title <name|none>, pet <name>",
		"  inventory (i), stats, quests, achievements, titles, map",
		"  again (g)     Repeat your last command",
		"",
		"Fighting (time runs while you think):",
		"  attack <enemy> to start; then attack, skill, defend,",
		"  contract, escape, use <item>, pet attack|skill|defend",
		"",
		"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
	}
}

func (m *Model) cmdState() []string {
	st := m.sess.Stats()
	output := []string{
		fmt.Sprintf("Session: %s", m.sess.ID()),
		fmt.Sprintf("Location: %s (%s)", st.LocationName, st.LocationID),
		fmt.Sprintf("Level %d, exp %d/%d, gold %d", st.Level, st.Exp, st.MaxExp, st.Gold),
		fmt.Sprintf("Discovered: %d, entities: %d", len(m.sess.Registry()), len(m.sess.Entities())),
	}
	if cs, ok := m.sess.Combat(); ok {
		output = append(output, fmt.Sprintf("Combat: tick %d, turn %q, AP %.0f/%.0f/%.0f", cs.Tick, cs.Turn, cs.PlayerAP, cs.PetAP, cs.EnemyAP))
	}
	return output
}

func formatTrace(result types.Result) []string {
	if len(result.Events) == 0 {
		return nil
	}
	lines := []string{fmt.Sprintf("[trace] Events: %d", len(result.Events))}
	for _, e := range result.Events {
		lines = append(lines, fmt.Sprintf("[trace]   %s", e.Type))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled
// (we use those for input history).
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
