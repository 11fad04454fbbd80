// Package cli provides line-oriented terminal play: input, output
// formatting, and meta-command dispatch for a wayfarer session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/store"
	"github.com/nathoo/wayfarer/types"
)

// DefaultSlot is used by /save and /load without an argument.
const DefaultSlot = "quicksave"

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *session.Session
	Store     store.Store // nil disables /save and /load
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	// MaxTicks bounds one AdvanceCombat call between prompts.
	MaxTicks int
	// Paced plays the enemy's turns out on the combat tick timer instead
	// of resolving them at once.
	Paced   bool
	lastCmd string
}

// New creates a CLI on stdin/stdout for s.
func New(s *session.Session, st store.Store) *CLI {
	return &CLI{
		Session:  s,
		Store:    st,
		In:       os.Stdin,
		Out:      os.Stdout,
		MaxTicks: 10000,
	}
}

// Run initializes the session, prints the opening, then loops:
// prompt, input, dispatch, output. Encounters advance on their own until
// the player or pet must act.
func (c *CLI) Run(ctx context.Context) error {
	res, err := c.Session.Initialize(ctx)
	if err != nil {
		return err
	}
	c.printResult(res)

	scanner := bufio.NewScanner(c.In)
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.print(c.prompt())
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return nil
			}
			continue
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		res, err := c.Session.Step(ctx, input)
		if err != nil {
			c.printSystem(fmt.Sprintf("Error: %v", err))
			logging.For("cli").WithError(err).Warn("step failed")
			continue
		}
		c.printResult(res)
		c.advance(ctx)
	}
	return scanner.Err()
}

// advance runs the open encounter until someone on the player's side
// holds the turn or it ends.
func (c *CLI) advance(ctx context.Context) {
	if c.Paced {
		c.advancePaced(ctx)
		return
	}
	for {
		if _, open := c.Session.Combat(); !open {
			return
		}
		turn, res := c.Session.AdvanceCombat(c.MaxTicks)
		c.printResult(res)
		switch turn {
		case types.ActorPlayer:
			c.printSystem(c.combatLine("Your turn"))
			return
		case types.ActorPet:
			c.printSystem(c.combatLine("Your pet's turn"))
			return
		}
	}
}

// advancePaced is advance on the session's real-time loop. Ticks run on
// this goroutine, so the session is never shared.
func (c *CLI) advancePaced(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.Session.RunCombat(ctx, func(step func()) { step() }, func(res types.Result) {
		c.printResult(res)
		st, open := c.Session.Combat()
		switch {
		case !open:
			cancel()
		case st.Turn == types.ActorPlayer:
			c.printSystem(c.combatLine("Your turn"))
			cancel()
		case st.Turn == types.ActorPet:
			c.printSystem(c.combatLine("Your pet's turn"))
			cancel()
		}
	})
}

func (c *CLI) combatLine(who string) string {
	st, _ := c.Session.Combat()
	line := fmt.Sprintf("%s | HP %d/%d MP %d | %s %d/%d",
		who, st.PlayerHP, st.PlayerMaxHP, st.PlayerMP, st.EnemyName, st.EnemyHP, st.EnemyMaxHP)
	if st.PetName != "" {
		line += fmt.Sprintf(" | %s %d/%d", st.PetName, st.PetHP, st.PetMaxHP)
	}
	return line
}

func (c *CLI) prompt() string {
	if _, open := c.Session.Combat(); open {
		return "!> "
	}
	return "> "
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(ctx, arg)

	case "/load":
		c.cmdLoad(ctx, arg)

	case "/saves":
		c.cmdSaves(ctx)

	case "/delete":
		c.cmdDelete(ctx, arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(ctx context.Context, slot string) {
	if c.Store == nil {
		c.printSystem("Saving is disabled.")
		return
	}
	if slot == "" {
		slot = DefaultSlot
	}
	b, err := c.Session.Snapshot()
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if _, err := c.Store.Put(ctx, slot, b); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game saved to %s.", slot))
}

func (c *CLI) cmdLoad(ctx context.Context, slot string) {
	if c.Store == nil {
		c.printSystem("Loading is disabled.")
		return
	}
	if slot == "" {
		slot = DefaultSlot
	}
	b, err := c.Store.Get(ctx, slot)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.printSystem(fmt.Sprintf("No save named %s.", slot))
			return
		}
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := c.Session.Restore(b); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Game loaded from %s (saved %s).", slot, b.SavedAt.Local().Format("2006-01-02 15:04")))

	// Show current location after loading.
	c.printResult(c.Session.Look())
}

func (c *CLI) cmdSaves(ctx context.Context) {
	if c.Store == nil {
		c.printSystem("Saving is disabled.")
		return
	}
	entries, err := c.Store.List(ctx)
	if err != nil {
		c.printSystem(fmt.Sprintf("Listing saves failed: %v", err))
		return
	}
	if len(entries) == 0 {
		c.printSystem("No saves yet.")
		return
	}
	for _, e := range entries {
		c.printLine(fmt.Sprintf("  %-16s %s  %s", e.Slot, e.SavedAt.Local().Format("2006-01-02 15:04"), e.Game))
	}
}

func (c *CLI) cmdDelete(ctx context.Context, slot string) {
	if c.Store == nil {
		c.printSystem("Saving is disabled.")
		return
	}
	if slot == "" {
		c.printSystem("Delete which save?")
		return
	}
	if err := c.Store.Delete(ctx, slot); err != nil {
		c.printSystem(fmt.Sprintf("Delete failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Deleted %s.", slot))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [slot]   Save game (default: quicksave)",
		"  /load [slot]   Load game (default: quicksave)",
		"  /saves         List saves",
		"  /delete <slot> Delete a save",
		"  /quit          Exit game",
		"  /help          Show this help",
		"  /state         Debug: dump current state",
		"  /trace         Toggle event trace output",
		"",
		"Exploring:",
		"  look (l) [thing]      Describe the place, or something in it",
		"  go <dir|place> (n/s/e/w/u/d)",
		"  explore               Search the area again",
		"  take / drop <item>",
		"  use / equip / unequip <item>",
		"  talk <npc>            Talk to someone",
		"  turnin <quest>        Claim a finished quest",
		"  title <name|none>     Wear a title",
		"  pet <name>            Choose your active pet",
		"  inventory (i), stats, quests, achievements, titles, map (m)",
		"  again (g)             Repeat your last command",
		"",
		"Fighting:",
		"  attack <enemy>        Start a fight",
		"  attack, skill, defend, contract, escape, use <item>",
		"  pet attack|skill|defend",
		"",
		"Anything else is passed to the storyteller.",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Session
	st := s.Stats()
	c.printSystem(fmt.Sprintf("Session: %s", s.ID()))
	c.printSystem(fmt.Sprintf("Location: %s (%s)", st.LocationName, st.LocationID))
	c.printSystem(fmt.Sprintf("Level %d, exp %d/%d, gold %d", st.Level, st.Exp, st.MaxExp, st.Gold))
	c.printSystem(fmt.Sprintf("Discovered: %d, entities: %d, victories: %d", len(s.Registry()), len(s.Entities()), st.Victories))
	if cs, ok := s.Combat(); ok {
		c.printSystem(fmt.Sprintf("Combat: tick %d, phase %s, AP %.0f/%.0f/%.0f", cs.Tick, cs.Phase, cs.PlayerAP, cs.PetAP, cs.EnemyAP))
	}
}

func (c *CLI) printTrace(result types.Result) {
	if len(result.Events) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Events: %d", len(result.Events)))
	for _, e := range result.Events {
		c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
	}
}

func (c *CLI) printResult(result types.Result) {
	for _, line := range result.Output {
		c.printLine(line)
	}
	if c.Trace {
		c.printTrace(result)
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
