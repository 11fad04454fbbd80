package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/wayfarer/engine/combat"
	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/types"
)

// ErrGone is returned when a handle no longer names an entity at the
// player's location.
var ErrGone = errors.New("that is no longer here")

// StartCombat opens an encounter with the hostile entity h.
func (s *Session) StartCombat(h types.Handle) (types.Result, error) {
	if !s.ready {
		return types.Result{}, ErrNotStarted
	}
	if s.fight != nil {
		return types.Result{}, ErrInCombat
	}
	e, ok := s.arena.Get(h)
	if !ok || e.Location != s.stats.LocationID {
		return types.Result{}, ErrGone
	}
	if !e.Kind.Hostile() {
		return types.Result{}, ErrNotHostile
	}

	sched, events, ok := combat.Start(e, s.stats, s.rng, s.cfg.Combat)
	if !ok {
		return s.commit(events), nil
	}
	s.fight = sched
	s.log.WithFields(logrus.Fields{"enemy": e.TemplateID, "handle": e.Handle}).Info("combat started")
	return s.commit(events), nil
}

// Combat returns the encounter state while one is open.
func (s *Session) Combat() (types.CombatState, bool) {
	if s.fight == nil {
		return types.CombatState{}, false
	}
	return s.fight.State(), true
}

// CombatAction performs a player action. It reports false, changing
// nothing, when there is no encounter or the action is not allowed now.
func (s *Session) CombatAction(a combat.Action) (types.Result, bool) {
	if s.fight == nil || !s.fight.Act(a) {
		return types.Result{}, false
	}
	return s.settle(), true
}

// PetAction performs the active pet's action on its turn.
func (s *Session) PetAction(a combat.PetAction) (types.Result, bool) {
	if s.fight == nil || !s.fight.PetAct(a) {
		return types.Result{}, false
	}
	return s.settle(), true
}

// CombatUse uses a consumable on the player's turn. The item leaves the
// inventory only if the scheduler accepted it.
func (s *Session) CombatUse(itemID string) (types.Result, bool) {
	if s.fight == nil {
		return types.Result{}, false
	}
	it, ok := player.FindItem(s.stats, itemID)
	if !ok || it.Effect == nil {
		return types.Result{}, false
	}
	if !s.fight.UseItem(it) {
		return types.Result{}, false
	}
	stats, err := player.RemoveItem(s.stats, itemID, 1)
	if err != nil {
		s.log.WithError(err).Error("consumed item vanished from inventory")
	} else {
		s.stats = stats
	}
	return s.settle(), true
}

// TickCombat advances the encounter by one step.
func (s *Session) TickCombat() types.Result {
	if s.fight == nil {
		return types.Result{}
	}
	s.fight.Tick()
	return s.settle()
}

// AdvanceCombat ticks until the player or pet must act, the encounter
// ends, or maxTicks ticks have run. It returns who holds the turn.
func (s *Session) AdvanceCombat(maxTicks int) (types.Actor, types.Result) {
	if s.fight == nil {
		return types.ActorNone, types.Result{}
	}
	turn := s.fight.AdvanceUntilTurn(maxTicks)
	return turn, s.settle()
}

// RunCombat drives the open encounter in real time until it ends or ctx is
// cancelled. Every tick goes through dispatch, which must run it on the
// goroutine that owns the session; onResult sees each tick's result.
func (s *Session) RunCombat(ctx context.Context, dispatch func(step func()), onResult func(types.Result)) {
	f := s.fight
	if f == nil {
		return
	}
	f.Loop(ctx, func(step func()) {
		dispatch(func() {
			if s.fight != f {
				return
			}
			step()
			res := s.settle()
			if onResult != nil {
				onResult(res)
			}
		})
	})
}

// CloseCombat abandons the open encounter. An encounter still in progress
// counts as an escape.
func (s *Session) CloseCombat() types.Result {
	if s.fight == nil {
		return types.Result{}
	}
	s.fight.Close()
	return s.settle()
}

// settle copies the encounter's hp and mp back onto the player record and,
// once the encounter has ended, applies its outcome and closes it.
func (s *Session) settle() types.Result {
	f := s.fight
	events := f.TakeEvents()
	st := f.State()

	s.stats.HP = st.PlayerHP
	s.stats.MP = st.PlayerMP
	if pet, ok := f.Pet(); ok {
		if owned, ok := player.FindPet(s.stats, pet.ID); ok {
			owned.HP = st.PetHP
			s.stats = player.UpdatePet(s.stats, owned)
		}
	}

	if !f.Active() {
		events = append(events, s.conclude(f, st)...)
		f.Close()
		events = append(events, f.TakeEvents()...)
		events = append(events, s.revivePets()...)
		s.fight = nil
	}
	return s.commit(events)
}

func (s *Session) revivePets() []types.Event {
	var names []string
	s.stats, names = player.RevivePets(s.stats, s.cfg.PetRevive)
	events := make([]types.Event, 0, len(names))
	for _, name := range names {
		events = append(events, types.Event{
			Type: types.EventNarrative,
			Text: fmt.Sprintf("%s staggers back to its feet.", name),
		})
	}
	return events
}

func (s *Session) conclude(f *combat.Scheduler, st types.CombatState) []types.Event {
	enemy := f.Enemy()
	log := s.log.WithFields(logrus.Fields{"enemy": enemy.TemplateID, "outcome": st.Outcome})
	log.Info("combat concluded")

	switch st.Outcome {
	case types.OutcomeVictory:
		return s.victory(enemy, st)
	case types.OutcomeDefeat:
		s.stats.HP = 0
	case types.OutcomeCaptured:
		return s.capture(f, enemy, st)
	case types.OutcomeEscaped:
		s.arena.Put(enemy)
	}
	return nil
}

func (s *Session) victory(enemy types.Entity, st types.CombatState) []types.Event {
	events := s.reward(enemy, "You defeated %s.")
	return append(events, s.evaluate(victoryFacts(st, s.cfg.Progression))...)
}

// capture pays out like a victory, then adds the subdued enemy to the
// roster before achievements are checked.
func (s *Session) capture(f *combat.Scheduler, enemy types.Entity, st types.CombatState) []types.Event {
	pet, ok := f.Captured()
	if !ok {
		return nil
	}
	events := s.reward(enemy, "You subdued %s.")
	pet.ID = s.arena.Allocate()
	s.stats = player.AddPet(s.stats, pet)
	return append(events, s.evaluate(victoryFacts(st, s.cfg.Progression))...)
}

// reward removes the beaten enemy and pays its exp, gold, kill progress
// and loot.
func (s *Session) reward(enemy types.Entity, format string) []types.Event {
	s.arena.Remove(enemy.Handle)
	s.stats.Victories++
	s.stats.Gold += enemy.GoldReward

	events := []types.Event{{
		Type: types.EventNarrative,
		Text: fmt.Sprintf(format+" (+%d exp, +%d gold)", enemy.Name, enemy.ExpReward, enemy.GoldReward),
	}}
	var lv []types.Event
	s.stats, lv = progression.ApplyExpGain(s.stats, enemy.ExpReward, s.cfg.Progression)
	events = append(events, lv...)
	events = append(events, s.track(progression.Activity{
		Kind: types.ObjectiveKill, TemplateID: enemy.TemplateID, Name: enemy.Name, Quantity: 1,
	})...)
	return append(events, s.rollLoot(enemy)...)
}

func victoryFacts(st types.CombatState, cfg progression.Config) progression.Facts {
	return progression.Facts{
		LowHPSurvival: progression.SurvivedLowHP(st.PlayerHP, st.PlayerMaxHP, cfg),
	}
}

// rollLoot rolls every row of the enemy template's loot table on its own.
func (s *Session) rollLoot(enemy types.Entity) []types.Event {
	tpl, ok := s.content.Entity(enemy.TemplateID)
	if !ok {
		s.log.WithField("template", enemy.TemplateID).Warn("no template for loot table, dropping nothing")
		return nil
	}
	var events []types.Event
	for _, row := range tpl.Loot {
		if !s.rng.Chance(row.Chance) {
			continue
		}
		qty := row.Min
		if row.Max > row.Min {
			qty = s.rng.Range(row.Min, row.Max)
		}
		if qty < 1 {
			qty = 1
		}
		it, ok := s.content.Item(row.ItemID)
		if !ok {
			s.log.WithField("item", row.ItemID).Warn("unknown loot item")
			continue
		}
		it.Quantity = qty
		s.stats = player.AddItem(s.stats, it)
		events = append(events, types.Event{
			Type: types.EventLoot,
			Text: fmt.Sprintf("%s dropped %s x%d.", enemy.Name, it.Name, qty),
			Data: map[string]any{"item": it.ID, "quantity": qty},
		})
		events = append(events, s.track(progression.Activity{
			Kind: types.ObjectiveCollect, TemplateID: it.ID, Name: it.Name, Quantity: qty,
		})...)
	}
	return events
}

func (s *Session) evaluate(facts progression.Facts) []types.Event {
	var events []types.Event
	s.stats, events = progression.EvaluateAchievements(s.stats, s.content.Titles, facts)
	return events
}
