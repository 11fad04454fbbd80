package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want lineKind
	}{
		{"You see: rusty key, old book.", kindYouSee},
		{"Exits: north, south, east.", kindExits},
		{"[Game saved to test.]", kindSystem},
		{"[trace] Effects: 2", kindTrace},
		{"You don't see that here.", kindError},
		{"You can't go that way.", kindError},
		{"You don't have that.", kindError},
		{"A grand hall with stone walls.", kindRoomDesc},
		{"Taken.", kindRoomDesc},
		{"", kindRoomDesc},
		{`Elder: "Slimes plague the forest, traveler."`, kindDialogue},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line)
		if got != tt.want {
			t.Errorf("classifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestContainsQuotedSpeech(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`"Hello, adventurer. Welcome to Oakvale."`, true},
		{`A "sign".`, false},       // short quote segment
		{"No quotes here.", false}, // no quotes at all
		{`"Hi"`, false},            // too short
		{`She says "the crown is lost forever, you must find it."`, true},
	}
	for _, tt := range tests {
		got := containsQuotedSpeech(tt.line)
		if got != tt.want {
			t.Errorf("containsQuotedSpeech(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The great hall stretches before you with its vaulted ceiling.", 30,
			"The great hall stretches\nbefore you with its vaulted\nceiling."},
		{"", 80, ""},
		{"one", 80, "one"},
		{"a b c d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")
	h.Push("take key")

	prev, ok := h.Prev()
	if !ok || prev != "take key" {
		t.Errorf("expected 'take key', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "go north" {
		t.Errorf("expected 'go north', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "look" {
		t.Errorf("expected 'look', got %q (ok=%v)", prev, ok)
	}

	// At oldest, stays there.
	prev, ok = h.Prev()
	if !ok || prev != "look" {
		t.Errorf("expected 'look' at boundary, got %q (ok=%v)", prev, ok)
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")

	h.Prev() // "go north"
	h.Prev() // "look"

	next, ok := h.Next()
	if !ok || next != "go north" {
		t.Errorf("expected 'go north', got %q (ok=%v)", next, ok)
	}

	_, ok = h.Next()
	if ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	_, ok := h.Prev()
	if ok {
		t.Error("expected false on empty history")
	}
	_, ok = h.Next()
	if ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
	// "a" is gone.
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b' at boundary, got %q", prev)
	}
}

func TestHistory_NoDuplicates(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("look") // skipped
	h.Push("look") // skipped

	if h.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", h.Len())
	}
}

func TestHistory_Repeatable(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Repeatable(); ok {
		t.Error("expected nothing to repeat on empty history")
	}
	h.Push("attack rat")
	h.Push("/save")
	h.Push("g")
	h.Push("again")

	got, ok := h.Repeatable()
	if !ok || got != "attack rat" {
		t.Errorf("expected 'attack rat', got %q (ok=%v)", got, ok)
	}
}

func TestHistory_WrapsAround(t *testing.T) {
	h := NewHistory(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		h.Push(line)
	}
	var got []string
	for i := 0; i < 3; i++ {
		line, _ := h.Prev()
		got = append(got, line)
	}
	if strings.Join(got, ",") != "e,d,c" {
		t.Errorf("expected e,d,c, got %v", got)
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")

	h.Prev() // "go north"
	h.ResetCursor()

	// After reset, Prev starts from the end again.
	prev, ok := h.Prev()
	if !ok || prev != "go north" {
		t.Errorf("expected 'go north' after reset, got %q", prev)
	}
}

// testContent returns a two-room game with a weak monster in the garden.
func testContent() *registry.Content {
	c := registry.NewContent()
	c.Game = registry.GameInfo{Title: "Test Game", Author: "Test", Version: "1.0", Start: "hall", Intro: "Welcome to the test."}
	c.Player = types.PlayerStats{
		Name: "Tess", HP: 50, MaxHP: 50, MP: 10, MaxMP: 10,
		Level: 1, MaxExp: 100, Attack: 10, Defense: 3, Speed: 10,
	}
	c.Entities["rat"] = types.Entity{
		TemplateID: "rat", Name: "Cellar Rat", Kind: types.EntityMonster,
		Level: 1, MaxHP: 1, Attack: 1, Speed: 1, ExpReward: 5,
	}
	c.Locations["hall"] = types.LocationRecord{
		ID: "hall", Name: "Great Hall", Description: "A grand hall.",
		Exits: []types.Exit{{Direction: types.North, TargetID: "garden", Label: "Garden", Command: "go north"}},
	}
	c.Locations["garden"] = types.LocationRecord{
		ID: "garden", Name: "Garden", Description: "A peaceful garden.",
		Exits:  []types.Exit{{Direction: types.South, TargetID: "hall", Label: "Great Hall", Command: "go south"}},
		Spawns: []types.Spawn{{TemplateID: "rat", Chance: 1}},
	}
	return c
}

// newTestModel returns an initialized, sized model.
func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	c := testContent()
	sess := session.New(c, engine.NewRNG(3), narrative.NewOffline(c), session.DefaultConfig())
	m := New(context.Background(), sess, opts)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return update(t, m, m.initialize()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm
}

// submit types input and runs the resulting session call to completion.
func submit(t *testing.T, m Model, input string) Model {
	t.Helper()
	m.input.SetValue(input)
	next, cmd := m.handleEnter()
	m = next.(Model)
	if cmd == nil {
		return m
	}
	msg := cmd()
	if _, ok := msg.(stepMsg); !ok {
		return m
	}
	return update(t, m, msg)
}

func transcript(m Model) string {
	var b strings.Builder
	for _, rl := range m.rawLines {
		b.WriteString(rl.text)
		b.WriteByte('\n')
	}
	return b.String()
}

func TestModel_Opening(t *testing.T) {
	m := newTestModel(t, Options{})
	if m.busy {
		t.Error("model should accept input after the opening")
	}
	out := transcript(m)
	if !strings.Contains(out, "Welcome to the test.") || !strings.Contains(out, "A grand hall.") {
		t.Errorf("expected intro and room, got:\n%s", out)
	}
	if !strings.Contains(m.View(), "Great Hall") {
		t.Error("expected the location in the status bar")
	}
}

func TestModel_StepStylesByEvent(t *testing.T) {
	m := newTestModel(t, Options{})
	m = submit(t, m, "go north")

	var title, warning bool
	for _, rl := range m.rawLines {
		if rl.text == "Garden" && rl.kind == kindRoomTitle {
			title = true
		}
	}
	m = submit(t, m, "take moon")
	for _, rl := range m.rawLines {
		if rl.kind == kindError {
			warning = true
		}
	}
	if !title {
		t.Error("expected the room name styled as a title")
	}
	if !warning {
		t.Error("expected a refusal styled as an error")
	}
}

func TestModel_BusyIgnoresInput(t *testing.T) {
	m := newTestModel(t, Options{})
	m.busy = true
	m.input.SetValue("look")
	next, cmd := m.handleEnter()
	if cmd != nil {
		t.Error("no session call should start while one is running")
	}
	if next.(Model).input.Value() != "look" {
		t.Error("input should be kept for later")
	}
}

// Run with -race: View must not read the session while a call is in flight.
func TestModel_ViewWhileStepRuns(t *testing.T) {
	m := newTestModel(t, Options{ShowMap: true})
	m.input.SetValue("go north")
	next, cmd := m.handleEnter()
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a session call")
	}

	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- cmd() }()
	for i := 0; i < 200; i++ {
		if !strings.Contains(m.View(), "Great Hall") {
			t.Fatal("expected the last known location while the move runs")
		}
	}
	m = update(t, m, <-msgs)

	if !strings.Contains(m.View(), "Garden") {
		t.Error("expected the view to follow the move once it lands")
	}
	if m.view.stats.LocationID != "garden" {
		t.Errorf("view location = %q, want garden", m.view.stats.LocationID)
	}
	if _, ok := m.view.graph.Node("garden"); !ok {
		t.Error("expected the map to include the garden")
	}
}

func TestModel_CombatTicksUntilPlayerTurn(t *testing.T) {
	m := newTestModel(t, Options{TickPeriod: time.Millisecond})
	m = submit(t, m, "n")
	m = submit(t, m, "attack rat")

	if !m.ticking {
		t.Fatal("expected a combat tick to be scheduled")
	}
	for i := 0; i < 100; i++ {
		st, _ := m.sess.Combat()
		if st.Turn == types.ActorPlayer {
			break
		}
		m = update(t, m, combatTickMsg{})
	}
	st, open := m.sess.Combat()
	if !open || st.Turn != types.ActorPlayer {
		t.Fatalf("expected the player's turn, got %+v", st)
	}
	if !strings.Contains(m.renderStatusBar(), "YOUR TURN") {
		t.Error("expected the turn marker in the status bar")
	}

	// Ticks do nothing while the player holds the turn.
	before := st.Tick
	m = update(t, m, combatTickMsg{})
	if st, _ := m.sess.Combat(); st.Tick != before {
		t.Error("tick advanced during the player's turn")
	}

	m = submit(t, m, "attack")
	if _, open := m.sess.Combat(); open {
		t.Error("the rat should not survive one attack")
	}
}

func TestModel_TickWaitsForRunningCall(t *testing.T) {
	m := newTestModel(t, Options{TickPeriod: time.Millisecond})
	m = submit(t, m, "n")
	m = submit(t, m, "attack rat")
	before, _ := m.sess.Combat()

	m.busy = true
	m = update(t, m, combatTickMsg{})
	after, _ := m.sess.Combat()
	if after.Tick != before.Tick {
		t.Error("combat ticked while a session call was running")
	}
	if !m.ticking {
		t.Error("expected the tick to be rescheduled")
	}
}

func TestModel_MapToggle(t *testing.T) {
	m := newTestModel(t, Options{})
	if strings.Contains(m.View(), "@") {
		t.Error("map should start hidden")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.showMap {
		t.Fatal("tab should show the map")
	}
	if m.viewport.Width != 120-mapPanelWidth {
		t.Errorf("viewport width = %d, want %d", m.viewport.Width, 120-mapPanelWidth)
	}
	if !strings.Contains(m.View(), "@") {
		t.Error("expected the current location marker in the map panel")
	}
}

func TestGaugeCells(t *testing.T) {
	tests := []struct {
		cur, max float64
		want     int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{50, 100, 5},
		{100, 100, 10},
		{150, 100, 10},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := gaugeCells(tt.cur, tt.max, 10); got != tt.want {
			t.Errorf("gaugeCells(%v, %v) = %d, want %d", tt.cur, tt.max, got, tt.want)
		}
	}
}

func TestKindForEvent(t *testing.T) {
	tests := []struct {
		event string
		line  string
		want  lineKind
	}{
		{types.EventRoomEntered, "Garden", kindRoomTitle},
		{types.EventWarning, "Go where?", kindError},
		{types.EventCombatStarted, "A rat attacks!", kindCombat},
		{types.EventLevelUp, "You reached level 2!", kindReward},
		{types.EventNarrative, "Exits: north (Garden).", kindExits},
		{types.EventNarrative, "Pines close in.", kindRoomDesc},
	}
	for _, tt := range tests {
		if got := kindForEvent(tt.event, tt.line); got != tt.want {
			t.Errorf("kindForEvent(%s, %q) = %v, want %v", tt.event, tt.line, got, tt.want)
		}
	}
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newTestModel(t, Options{})

	_, quit := m.handleMeta("/quit")
	if !quit {
		t.Error("expected quit=true for /quit")
	}

	_, quit = m.handleMeta("/exit")
	if !quit {
		t.Error("expected quit=true for /exit")
	}
}

func TestHandleMeta_SaveAndLoad(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, Options{Store: st})
	m = submit(t, m, "go north")

	output, quit := m.handleMeta("/save test")
	if quit {
		t.Error("save should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Game saved") {
		t.Errorf("expected save confirmation, got %v", output)
	}

	fresh := newTestModel(t, Options{Store: st})
	output, _ = fresh.handleMeta("/load test")
	if len(output) == 0 || !strings.Contains(output[0], "Game loaded from test") {
		t.Errorf("expected load confirmation, got %v", output)
	}
	if got := fresh.sess.Stats().LocationID; got != "garden" {
		t.Errorf("location = %s, want garden", got)
	}

	output, _ = fresh.handleMeta("/saves")
	if len(output) != 1 || !strings.HasPrefix(output[0], "test") {
		t.Errorf("expected one listed save, got %v", output)
	}
}

func TestHandleMeta_LoadNonexistent(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := newTestModel(t, Options{Store: st})

	output, quit := m.handleMeta("/load nonexistent")
	if quit {
		t.Error("load should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "No save named nonexistent") {
		t.Errorf("expected missing save message, got %v", output)
	}
}

func TestHandleMeta_NoStore(t *testing.T) {
	m := newTestModel(t, Options{})
	output, _ := m.handleMeta("/save")
	if len(output) == 0 || output[0] != "Saving is disabled." {
		t.Errorf("got %v", output)
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newTestModel(t, Options{})

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}

	joined := strings.Join(output, "\n")
	for _, expected := range []string{"/save", "/load", "/quit", "/map", "look", "inventory", "contract"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newTestModel(t, Options{})

	output, _ := m.handleMeta("/trace")
	if !m.trace {
		t.Error("expected trace to be enabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected enabled message, got %v", output)
	}

	output, _ = m.handleMeta("/trace")
	if m.trace {
		t.Error("expected trace to be disabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected disabled message, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newTestModel(t, Options{})

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newTestModel(t, Options{})

	output, quit := m.handleMeta("/state")
	if quit {
		t.Error("state should not quit")
	}

	joined := strings.Join(output, "\n")
	if !strings.Contains(joined, "Location: Great Hall (hall)") {
		t.Error("expected location in state output")
	}
}
