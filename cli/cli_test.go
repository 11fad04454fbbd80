package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

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

func newSession() *session.Session {
	c := testContent()
	return session.New(c, engine.NewRNG(7), narrative.NewOffline(c), session.DefaultConfig())
}

func TestCLI_PacedCombat(t *testing.T) {
	c, out := newTestCLI(t, nil, "n\nattack rat\nattack\n/quit\n")
	cfg := session.DefaultConfig()
	cfg.Combat.TickPeriod = time.Millisecond
	content := testContent()
	c.Session = session.New(content, engine.NewRNG(7), narrative.NewOffline(content), cfg)
	c.Paced = true
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Your turn") {
		t.Errorf("expected a turn prompt, got:\n%s", output)
	}
	if c.Session.Stats().Victories != 1 {
		t.Errorf("victories = %d, want 1", c.Session.Stats().Victories)
	}
}

func newTestCLI(t *testing.T, st store.Store, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c := New(newSession(), st)
	c.In = strings.NewReader(input)
	c.Out = &out
	return c, &out
}

func newFileStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return st
}

func run(t *testing.T, c *CLI) {
	t.Helper()
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCLI_IntroAndStartingRoom(t *testing.T) {
	c, out := newTestCLI(t, nil, "/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Welcome to the test.") {
		t.Error("expected intro text in output")
	}
	if !strings.Contains(output, "A grand hall.") {
		t.Error("expected starting room description in output")
	}
}

func TestCLI_Navigation(t *testing.T) {
	c, out := newTestCLI(t, nil, "go north\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "A peaceful garden.") {
		t.Error("expected garden description after going north")
	}
}

func TestCLI_CombatAdvancesToPlayerTurn(t *testing.T) {
	c, out := newTestCLI(t, nil, "n\nattack rat\nattack\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Your turn") {
		t.Errorf("expected a turn prompt, got:\n%s", output)
	}
	if !strings.Contains(output, "Cellar Rat 1/1") {
		t.Error("expected the enemy gauge in the turn prompt")
	}
	if _, open := c.Session.Combat(); open {
		t.Error("the rat should not survive one attack")
	}
	if c.Session.Stats().Victories != 1 {
		t.Errorf("victories = %d, want 1", c.Session.Stats().Victories)
	}
}

func TestCLI_HelpCommand(t *testing.T) {
	c, out := newTestCLI(t, nil, "/help\n/quit\n")
	run(t, c)

	output := out.String()
	for _, want := range []string{"/save", "/load", "/saves", "/quit", "contract"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in help output", want)
		}
	}
}

func TestCLI_SaveAndLoad(t *testing.T) {
	st := newFileStore(t)

	c, out := newTestCLI(t, st, "go north\n/save test\n/saves\n/quit\n")
	run(t, c)

	saveOutput := out.String()
	if !strings.Contains(saveOutput, "Game saved to test.") {
		t.Error("expected save confirmation")
	}
	if !strings.Contains(saveOutput, "Test Game") {
		t.Error("expected the save listing to name the game")
	}

	// Start fresh and load.
	c2, out2 := newTestCLI(t, st, "/load test\n/quit\n")
	run(t, c2)

	loadOutput := out2.String()
	if !strings.Contains(loadOutput, "Game loaded from test") {
		t.Error("expected load confirmation")
	}
	if !strings.Contains(loadOutput, "A peaceful garden.") {
		t.Error("expected garden description after loading save")
	}
	if got := c2.Session.Stats().LocationID; got != "garden" {
		t.Errorf("location = %s, want garden", got)
	}
}

func TestCLI_SaveRefusedInCombat(t *testing.T) {
	c, out := newTestCLI(t, newFileStore(t), "n\nattack rat\n/save\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "Save failed") {
		t.Error("expected saving mid-fight to fail")
	}
}

func TestCLI_DeleteSave(t *testing.T) {
	c, out := newTestCLI(t, newFileStore(t), "/save a\n/delete a\n/delete a\n/delete\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Deleted a.") {
		t.Error("expected delete confirmation")
	}
	if !strings.Contains(output, "Delete failed") {
		t.Error("expected second delete to fail")
	}
	if !strings.Contains(output, "Delete which save?") {
		t.Error("expected prompt for a slot")
	}
}

func TestCLI_NoStore(t *testing.T) {
	c, out := newTestCLI(t, nil, "/save\n/load\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Saving is disabled.") || !strings.Contains(output, "Loading is disabled.") {
		t.Error("expected save and load to be disabled without a store")
	}
}

func TestCLI_LoadNonexistent(t *testing.T) {
	c, out := newTestCLI(t, newFileStore(t), "/load nonexistent\n/load ../x\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "No save named nonexistent.") {
		t.Error("expected missing save message")
	}
	if !strings.Contains(output, "Load failed") {
		t.Error("expected invalid slot to fail")
	}
}

func TestCLI_UnknownMetaCommand(t *testing.T) {
	c, out := newTestCLI(t, nil, "/bogus\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "Unknown command") {
		t.Error("expected unknown command message")
	}
}

func TestCLI_TraceToggle(t *testing.T) {
	c, out := newTestCLI(t, nil, "/trace\nlook\n/trace\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Trace output enabled") {
		t.Error("expected trace enabled message")
	}
	if !strings.Contains(output, "[trace]   room_entered") {
		t.Error("expected traced events")
	}
	if !strings.Contains(output, "Trace output disabled") {
		t.Error("expected trace disabled message")
	}
}

func TestCLI_StateCommand(t *testing.T) {
	c, out := newTestCLI(t, nil, "/state\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Location: Great Hall (hall)") {
		t.Error("expected location in state output")
	}
	if !strings.Contains(output, "Level 1") {
		t.Error("expected level in state output")
	}
}

func TestCLI_EmptyInputAndComments(t *testing.T) {
	c, out := newTestCLI(t, nil, "\n\n# a comment\n/quit\n")
	run(t, c)

	if strings.Contains(out.String(), "What do you want to do?") {
		t.Error("empty lines should be silently skipped by CLI")
	}
}

func TestCLI_Again_RepeatsLastCommand(t *testing.T) {
	c, out := newTestCLI(t, nil, "look\nagain\ng\n/quit\n")
	run(t, c)

	// Intro arrival + look + again + g.
	count := strings.Count(out.String(), "A grand hall.")
	if count < 4 {
		t.Errorf("expected 'A grand hall.' at least 4 times, got %d", count)
	}
}

func TestCLI_Again_NothingToRepeat(t *testing.T) {
	c, out := newTestCLI(t, nil, "again\n/quit\n")
	run(t, c)

	if !strings.Contains(out.String(), "Nothing to repeat") {
		t.Error("expected 'Nothing to repeat' when no prior command")
	}
}

func TestCLI_EchoInput(t *testing.T) {
	c, out := newTestCLI(t, nil, "look\n")
	c.EchoInput = true
	run(t, c)

	if !strings.Contains(out.String(), "> look\n") {
		t.Error("expected echoed input after the prompt")
	}
}
