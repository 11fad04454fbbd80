package session

import (
	"errors"
	"fmt"

	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/types"
)

// ErrCantUse is returned when the scheduler refuses an item mid-fight.
var ErrCantUse = errors.New("you can't use that now")

func (s *Session) canAct() error {
	switch {
	case !s.ready:
		return ErrNotStarted
	case s.fight != nil:
		return ErrInCombat
	}
	return nil
}

// Pickup moves the ground item h into the inventory.
func (s *Session) Pickup(h types.Handle) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	e, ok := s.arena.Get(h)
	if !ok || e.Location != s.stats.LocationID {
		return types.Result{}, ErrGone
	}
	if e.Kind != types.EntityItem {
		return types.Result{}, ErrNotPickable
	}
	it, ok := s.content.Item(e.ItemID)
	if !ok {
		// Items handed out by the narrative service may have no template.
		it = types.Item{ID: e.ItemID, Name: e.Name, Category: types.ItemMaterial}
	}
	it.Quantity = max(1, e.Quantity)
	s.stats = player.AddItem(s.stats, it)
	s.arena.Remove(h)

	events := []types.Event{{
		Type: types.EventItemTaken,
		Text: fmt.Sprintf("Taken: %s x%d.", it.Name, it.Quantity),
		Data: map[string]any{"item": it.ID, "quantity": it.Quantity},
	}}
	events = append(events, s.track(progression.Activity{
		Kind: types.ObjectiveCollect, TemplateID: it.ID, Name: it.Name, Quantity: it.Quantity,
	})...)
	return s.commit(events), nil
}

// Drop leaves qty of an inventory item on the ground as a new entity.
func (s *Session) Drop(itemID string, qty int) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	if qty < 1 {
		qty = 1
	}
	it, ok := player.FindItem(s.stats, itemID)
	if !ok {
		return types.Result{}, player.ErrNoItem
	}
	stats, err := player.RemoveItem(s.stats, itemID, qty)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	s.arena.Spawn(types.Entity{
		TemplateID: it.ID,
		Name:       it.Name,
		Kind:       types.EntityItem,
		ItemID:     it.ID,
		Quantity:   qty,
	}, s.stats.LocationID)

	return s.commit([]types.Event{{
		Type: types.EventItemDropped,
		Text: fmt.Sprintf("Dropped: %s x%d.", it.Name, qty),
		Data: map[string]any{"item": it.ID, "quantity": qty},
	}}), nil
}

// Use consumes an item. During combat it goes through the scheduler and
// spends the player's turn.
func (s *Session) Use(itemID string) (types.Result, error) {
	if !s.ready {
		return types.Result{}, ErrNotStarted
	}
	if s.fight != nil {
		res, ok := s.CombatUse(itemID)
		if !ok {
			return types.Result{}, ErrCantUse
		}
		return res, nil
	}
	it, _ := player.FindItem(s.stats, itemID)
	stats, eff, err := player.UseItem(s.stats, itemID)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	var text string
	switch eff.Kind {
	case types.EffectHeal:
		text = fmt.Sprintf("You use %s and recover %d hp.", it.Name, eff.Amount)
	case types.EffectRestoreMP:
		text = fmt.Sprintf("You use %s and recover %d mp.", it.Name, eff.Amount)
	default:
		text = fmt.Sprintf("You use %s.", it.Name)
	}
	return s.commit([]types.Event{{Type: types.EventNarrative, Text: text}}), nil
}

// Equip moves an equipment item into its slot.
func (s *Session) Equip(itemID string) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	stats, err := player.Equip(s.stats, itemID)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	it, _ := s.equipped(itemID)
	return s.commit([]types.Event{{
		Type: types.EventNarrative,
		Text: fmt.Sprintf("You equip %s.", it.Name),
	}}), nil
}

func (s *Session) equipped(itemID string) (types.Item, bool) {
	for _, it := range s.stats.Equipment {
		if it.ID == itemID {
			return it, true
		}
	}
	return types.Item{}, false
}

// Unequip returns the item in slot to the inventory.
func (s *Session) Unequip(slot types.EquipSlot) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	it := s.stats.Equipment[slot]
	stats, err := player.Unequip(s.stats, slot)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	return s.commit([]types.Event{{
		Type: types.EventNarrative,
		Text: fmt.Sprintf("You unequip %s.", it.Name),
	}}), nil
}

// Talk speaks with the NPC h: its next dialogue line, a talk objective,
// and any quests it offers that the player doesn't have yet.
func (s *Session) Talk(h types.Handle) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	e, ok := s.arena.Get(h)
	if !ok || e.Location != s.stats.LocationID {
		return types.Result{}, ErrGone
	}
	if e.Kind != types.EntityNPC {
		return types.Result{}, ErrNotTalkative
	}

	var events []types.Event
	if len(e.Dialogue) > 0 {
		line := e.Dialogue[s.talks[h]%len(e.Dialogue)]
		s.talks[h]++
		events = append(events, types.Event{
			Type: types.EventNarrative,
			Text: fmt.Sprintf("%s: \"%s\"", e.Name, line),
		})
	} else {
		events = append(events, types.Event{
			Type: types.EventNarrative,
			Text: fmt.Sprintf("%s nods at you.", e.Name),
		})
	}
	events = append(events, s.track(progression.Activity{
		Kind: types.ObjectiveTalk, TemplateID: e.TemplateID, Name: e.Name, Quantity: 1,
	})...)

	for _, qid := range e.QuestIDs {
		q, ok := s.content.Quest(qid)
		if !ok {
			s.log.WithField("quest", qid).Warn("NPC offers unknown quest")
			continue
		}
		if q.Giver == "" {
			q.Giver = e.TemplateID
		}
		var evs []types.Event
		s.quests, evs, _ = progression.AddQuest(s.quests, q)
		events = append(events, evs...)
	}
	return s.commit(events), nil
}

// TurnIn hands in a completable quest and grants its rewards.
func (s *Session) TurnIn(questID string) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	stats, quests, events, err := progression.TurnIn(s.stats, s.quests, questID, s.content, s.content.Titles, s.cfg.Progression)
	if err != nil {
		return types.Result{}, err
	}
	s.stats, s.quests = stats, quests
	events = append(events, s.evaluate(progression.Facts{})...)
	return s.commit(events), nil
}

// EquipTitle swaps the active title; "" removes it.
func (s *Session) EquipTitle(id string) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	stats, events, err := progression.EquipTitle(s.stats, s.content.Titles, id)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	return s.commit(events), nil
}

// SetActivePet chooses which pet fights alongside the player.
func (s *Session) SetActivePet(id types.Handle) (types.Result, error) {
	if err := s.canAct(); err != nil {
		return types.Result{}, err
	}
	stats, err := player.SetActivePet(s.stats, id)
	if err != nil {
		return types.Result{}, err
	}
	s.stats = stats
	pet, _ := player.ActivePet(s.stats)
	return s.commit([]types.Event{{
		Type: types.EventNarrative,
		Text: fmt.Sprintf("%s is now at your side.", pet.Name),
	}}), nil
}
