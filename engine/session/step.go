package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/combat"
	"github.com/nathoo/wayfarer/engine/parser"
	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/resolve"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/types"
)

var combatVerbs = map[string]combat.Action{
	"attack":   combat.ActionAttack,
	"skill":    combat.ActionSkill,
	"defend":   combat.ActionDefend,
	"contract": combat.ActionContract,
	"escape":   combat.ActionEscape,
	"go":       combat.ActionEscape,
}

var petVerbs = map[string]combat.PetAction{
	"attack": combat.PetAttack,
	"skill":  combat.PetSkill,
	"defend": combat.PetDefend,
}

// Step parses one typed command and runs it. Verbs the engine doesn't
// know are sent to the narrative service as free text. Refusals (a
// missing exit, an unknown item) come back as a warning event, not an
// error; the error is reserved for failures the host must handle.
func (s *Session) Step(ctx context.Context, input string) (types.Result, error) {
	intent := parser.Parse(input)
	if intent.Verb == "" {
		return refuse("What do you want to do?"), nil
	}
	if !s.ready {
		return types.Result{}, ErrNotStarted
	}

	switch intent.Verb {
	case "inventory":
		return info(s.describeInventory()), nil
	case "stats":
		return info(s.describeStats()), nil
	case "quests":
		return info(s.describeQuests()), nil
	case "achievements":
		return info(s.describeAchievements()), nil
	case "titles":
		return info(s.describeTitles()), nil
	case "map":
		return info(s.describeMap()), nil
	}

	if s.fight != nil {
		return s.combatStep(intent)
	}
	if player.IsDead(s.stats) {
		return refuse(ErrDead.Error()), nil
	}

	res, err := s.exploreStep(ctx, intent, input)
	if err != nil && !isRefusal(err) {
		return res, err
	}
	if err != nil {
		return refuse(capitalize(err.Error()) + "."), nil
	}
	return res, nil
}

func (s *Session) combatStep(intent types.Intent) (types.Result, error) {
	if intent.Verb == "pet" {
		a, ok := petVerbs[intent.Object]
		if !ok {
			return refuse("Your pet can attack, skill or defend."), nil
		}
		if res, ok := s.PetAction(a); ok {
			return res, nil
		}
		return refuse("It isn't your pet's turn."), nil
	}
	if intent.Verb == "use" {
		it, err := resolve.Item(s.stats.Inventory, intent.Object)
		if err != nil {
			return refuse(capitalize(err.Error()) + "."), nil
		}
		if res, ok := s.CombatUse(it.ID); ok {
			return res, nil
		}
		return refuse("You can't use that now."), nil
	}
	a, ok := combatVerbs[intent.Verb]
	if !ok {
		return refuse("You're in the middle of a fight! (attack, skill, defend, contract, escape, use <item>, pet <action>)"), nil
	}
	if res, ok := s.CombatAction(a); ok {
		return res, nil
	}
	return refuse("You can't do that right now."), nil
}

func (s *Session) exploreStep(ctx context.Context, intent types.Intent, input string) (types.Result, error) {
	switch intent.Verb {
	case "look":
		if intent.Object == "" {
			return s.Look(), nil
		}
		e, err := resolve.Entity(s.Here(), intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return info(describeEntity(e)), nil

	case "go":
		where := intent.Object
		if where == "" {
			where = intent.Target
		}
		if where == "" {
			return refuse("Go where?"), nil
		}
		return s.Move(ctx, where)

	case "explore":
		return s.Explore(ctx)

	case "take":
		e, err := resolve.Entity(s.Here(), intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.Pickup(e.Handle)

	case "drop":
		it, err := resolve.Item(s.stats.Inventory, intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.Drop(it.ID, 1)

	case "use":
		it, err := resolve.Item(s.stats.Inventory, intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.Use(it.ID)

	case "equip":
		it, err := resolve.Item(s.stats.Inventory, intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.Equip(it.ID)

	case "unequip":
		slot := types.EquipSlot(intent.Object)
		if !slot.Valid() {
			for sl, it := range s.stats.Equipment {
				if _, err := resolve.Item([]types.Item{it}, intent.Object); err == nil {
					slot = sl
				}
			}
		}
		return s.Unequip(slot)

	case "attack":
		e, err := resolve.Entity(s.Here(), intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.StartCombat(e.Handle)

	case "talk":
		e, err := resolve.Entity(s.Here(), intent.Object)
		if err != nil {
			return types.Result{}, err
		}
		return s.Talk(e.Handle)

	case "turnin":
		return s.TurnIn(intent.Object)

	case "title":
		id := intent.Object
		if id == "none" || id == "off" {
			id = ""
		}
		return s.EquipTitle(s.titleID(id))

	case "pet":
		for _, p := range s.stats.Pets {
			if strings.EqualFold(p.Name, intent.Object) || strings.EqualFold(p.TemplateID, intent.Object) {
				return s.SetActivePet(p.ID)
			}
		}
		return types.Result{}, player.ErrNoPet

	case "wait":
		return info("Time passes."), nil
	}

	return s.Submit(ctx, input)
}

// titleID accepts a title's display name as well as its ID.
func (s *Session) titleID(name string) string {
	for id, t := range s.content.Titles {
		if strings.EqualFold(t.Name, name) {
			return id
		}
	}
	return name
}

func isRefusal(err error) bool {
	var he *HostError
	return !errors.As(err, &he) && !errors.Is(err, ErrNotStarted)
}

func refuse(text string) types.Result {
	return types.Result{
		Events: []types.Event{{Type: types.EventWarning, Text: text}},
		Output: []string{text},
	}
}

func info(text string) types.Result {
	return types.Result{
		Events: []types.Event{{Type: types.EventNarrative, Text: text}},
		Output: []string{text},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func describeEntity(e types.Entity) string {
	switch e.Kind {
	case types.EntityMonster, types.EntityBoss:
		return fmt.Sprintf("%s (level %d) - HP %d/%d, ATK %d, DEF %d, SPD %d.",
			e.Name, e.Level, e.HP, e.MaxHP, e.Attack, e.Defense, e.Speed)
	case types.EntityItem:
		return fmt.Sprintf("%s x%d lies here.", e.Name, max(1, e.Quantity))
	}
	return fmt.Sprintf("%s is here.", e.Name)
}

func (s *Session) describeInventory() string {
	var b strings.Builder
	if len(s.stats.Inventory) == 0 {
		b.WriteString("You are carrying nothing.")
	} else {
		b.WriteString("You are carrying:")
		for _, it := range s.stats.Inventory {
			fmt.Fprintf(&b, "\n  %s x%d", it.Name, it.Quantity)
		}
	}
	slots := make([]string, 0, len(s.stats.Equipment))
	for slot := range s.stats.Equipment {
		slots = append(slots, string(slot))
	}
	sort.Strings(slots)
	for _, slot := range slots {
		fmt.Fprintf(&b, "\n  [%s] %s", slot, s.stats.Equipment[types.EquipSlot(slot)].Name)
	}
	fmt.Fprintf(&b, "\nGold: %d", s.stats.Gold)
	return b.String()
}

func (s *Session) describeStats() string {
	p := s.stats
	var b strings.Builder
	fmt.Fprintf(&b, "%s, level %d (%d/%d exp)\n", p.Name, p.Level, p.Exp, p.MaxExp)
	fmt.Fprintf(&b, "HP %d/%d  MP %d/%d\n", p.HP, p.MaxHP, p.MP, p.MaxMP)
	fmt.Fprintf(&b, "ATK %d  DEF %d  SPD %d", p.Attack, p.Defense, p.Speed)
	if p.ActiveTitle != "" {
		t, _ := s.content.Title(p.ActiveTitle)
		fmt.Fprintf(&b, "\nTitle: %s", t.Name)
	}
	for _, pet := range p.Pets {
		marker := ""
		if pet.ID == p.ActivePet {
			marker = " *"
		}
		fmt.Fprintf(&b, "\nPet: %s HP %d/%d%s", pet.Name, pet.HP, pet.MaxHP, marker)
	}
	return b.String()
}

func (s *Session) describeQuests() string {
	if len(s.quests) == 0 {
		return "You have no quests."
	}
	var b strings.Builder
	for i, q := range s.quests {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s [%s] %d/%d", q.Name, q.Status, q.Progress(), q.Total())
	}
	return b.String()
}

func (s *Session) describeAchievements() string {
	if len(s.stats.Achievements) == 0 {
		return "There are no achievements to earn."
	}
	var b strings.Builder
	for i, a := range s.stats.Achievements {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if a.Unlocked {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s", mark, a.Name)
		if a.Description != "" {
			fmt.Fprintf(&b, " - %s", a.Description)
		}
	}
	return b.String()
}

func (s *Session) describeTitles() string {
	if len(s.stats.UnlockedTitles) == 0 {
		return "You have not earned any titles."
	}
	var b strings.Builder
	b.WriteString("Titles:")
	for _, id := range s.stats.UnlockedTitles {
		t, ok := s.content.Title(id)
		if !ok {
			continue
		}
		marker := ""
		if id == s.stats.ActiveTitle {
			marker = " (worn)"
		}
		fmt.Fprintf(&b, "\n  %s%s", t.Name, marker)
	}
	return b.String()
}

// describeMap draws the known world around the player with a legend of
// nearby places.
func (s *Session) describeMap() string {
	g := s.Graph()
	var b strings.Builder
	b.WriteString(world.Render(g, 41, 15))
	for _, n := range g.Nodes {
		glyph := world.GlyphStub
		switch {
		case n.ID == g.Current:
			glyph = world.GlyphCurrent
		case n.Visited:
			glyph = world.GlyphVisited
		}
		fmt.Fprintf(&b, "\n%c %s", glyph, n.Label)
	}
	return b.String()
}
