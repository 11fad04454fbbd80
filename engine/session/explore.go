package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/types"
)

// shroudedText is shown when a location cannot be generated.
const shroudedText = "The way ahead is shrouded. You stay where you are."

func (s *Session) canExplore() error {
	switch {
	case !s.ready:
		return ErrNotStarted
	case s.fight != nil:
		return ErrInCombat
	case player.IsDead(s.stats):
		return ErrDead
	}
	return nil
}

// Move follows an exit of the current location. where may be a direction
// ("north", "n"), the exit's command, its label, or the target's name.
func (s *Session) Move(ctx context.Context, where string) (types.Result, error) {
	if err := s.canExplore(); err != nil {
		return types.Result{}, err
	}
	exit, ok := s.findExit(where)
	if !ok {
		return types.Result{}, ErrNoExit
	}
	return s.enter(ctx, exit.TargetID, &exit)
}

// EnterLocation moves the player to id directly, generating its record
// if it has never been visited.
func (s *Session) EnterLocation(ctx context.Context, id string) (types.Result, error) {
	if err := s.canExplore(); err != nil {
		return types.Result{}, err
	}
	if exit, ok := s.findExit(id); ok {
		return s.enter(ctx, exit.TargetID, &exit)
	}
	return s.enter(ctx, id, nil)
}

func (s *Session) findExit(where string) (types.Exit, bool) {
	cur := s.registry[s.stats.LocationID]
	where = strings.TrimSpace(where)
	if dir, ok := world.ParseDirection(where); ok {
		for _, e := range cur.Exits {
			if strings.EqualFold(string(e.Direction), string(dir)) {
				return e, true
			}
		}
	}
	for _, e := range cur.Exits {
		if strings.EqualFold(e.Command, where) ||
			strings.EqualFold(e.TargetID, where) ||
			strings.EqualFold(e.Label, where) ||
			strings.EqualFold(world.CleanLabel(e.Label), where) {
			return e, true
		}
		if rec, ok := s.registry[e.TargetID]; ok && strings.EqualFold(rec.Name, where) {
			return e, true
		}
	}
	return types.Exit{}, false
}

// enter resolves id to a record, asking the narrative service for one the
// first time, and moves the player there. A generation failure leaves
// everything untouched.
func (s *Session) enter(ctx context.Context, id string, via *types.Exit) (types.Result, error) {
	rec, known := s.registry[id]
	if !known {
		gen, err := s.svc.GenerateLocationDetails(ctx, id, s.stats.Level, nil)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, narrative.ErrMissingCredentials) {
				return types.Result{}, &HostError{Op: "entering " + id, Err: err}
			}
			s.log.WithError(err).WithField("location", id).Warn("location generation failed")
			return s.commit([]types.Event{{Type: types.EventError, Text: shroudedText}}), nil
		}
		if via != nil || gen.ID == "" {
			gen.ID = id
		}
		rec = gen
		if existing, ok := s.registry[rec.ID]; ok {
			rec = existing
		}
	}

	if via != nil {
		rec = s.withReturnExit(rec, *via)
	}
	return s.commit(s.arrive(rec)), nil
}

// withReturnExit adds the way back to the location the player is leaving,
// unless the record already has an exit there or in that direction.
func (s *Session) withReturnExit(rec types.LocationRecord, via types.Exit) types.LocationRecord {
	from := s.stats.LocationID
	back := world.Opposite(via.Direction)
	if from == "" || back == "" || from == rec.ID {
		return rec
	}
	for _, e := range rec.Exits {
		if e.TargetID == from || e.Direction == back {
			return rec
		}
	}
	rec = registry.CloneLocation(rec)
	rec.Exits = append(rec.Exits, types.Exit{
		Direction: back,
		TargetID:  from,
		Label:     s.stats.LocationName,
		Command:   "go " + string(back),
	})
	return rec
}

// arrive stores rec, moves the player into it and populates it. NPCs and
// ground items are placed on the first visit only; monster spawns are
// rolled on every arrival with no hostile already present.
func (s *Session) arrive(rec types.LocationRecord) []types.Event {
	_, visited := s.registry[rec.ID]
	if rec.Exits == nil {
		rec.Exits = []types.Exit{}
	}
	s.registry[rec.ID] = registry.CloneLocation(rec)
	s.revision++
	s.stats.LocationID = rec.ID
	s.stats.LocationName = rec.Name

	events := []types.Event{{
		Type: types.EventRoomEntered,
		Text: rec.Name,
		Data: map[string]any{"location": rec.ID},
	}}
	events = append(events, narrate(rec.Description)...)

	if !visited {
		s.populate(rec)
	}
	s.rollSpawns(rec)

	events = append(events, s.track(progression.Activity{
		Kind:       types.ObjectiveExplore,
		TemplateID: rec.ID,
		Name:       rec.Name,
		Quantity:   1,
	})...)
	events = append(events, s.presence()...)
	s.log.WithField("location", rec.ID).Debug("entered location")
	return events
}

// Explore searches the current location again. The narrative service may
// enrich the record; exits already known are never lost.
func (s *Session) Explore(ctx context.Context) (types.Result, error) {
	if err := s.canExplore(); err != nil {
		return types.Result{}, err
	}
	cur := s.Location()
	gen, err := s.svc.GenerateLocationDetails(ctx, cur.ID, s.stats.Level, &cur)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, narrative.ErrMissingCredentials) {
			return types.Result{}, &HostError{Op: "exploring " + cur.ID, Err: err}
		}
		s.log.WithError(err).WithField("location", cur.ID).Warn("location refresh failed")
		gen = cur
	}
	gen.ID = cur.ID
	gen.Exits = mergeExits(cur.Exits, gen.Exits)
	if gen.Name == "" {
		gen.Name = cur.Name
	}
	s.registry[cur.ID] = registry.CloneLocation(gen)
	s.revision++
	s.stats.LocationName = gen.Name

	events := narrate(gen.Description)
	s.rollSpawns(gen)
	events = append(events, s.presence()...)
	return s.commit(events), nil
}

func mergeExits(known, fresh []types.Exit) []types.Exit {
	out := append([]types.Exit{}, known...)
	for _, e := range fresh {
		dup := false
		for _, k := range known {
			if k.TargetID == e.TargetID {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// Look describes the current location without changing anything.
func (s *Session) Look() types.Result {
	cur := s.Location()
	events := []types.Event{{Type: types.EventRoomEntered, Text: cur.Name, Data: map[string]any{"location": cur.ID}}}
	events = append(events, narrate(cur.Description)...)
	events = append(events, s.presence()...)
	var exits []string
	for _, e := range cur.Exits {
		label := e.Label
		if rec, ok := s.registry[e.TargetID]; ok {
			label = rec.Name
		}
		exits = append(exits, fmt.Sprintf("%s (%s)", e.Direction, world.CleanLabel(label)))
	}
	if len(exits) > 0 {
		events = append(events, types.Event{Type: types.EventNarrative, Text: "Exits: " + strings.Join(exits, ", ") + "."})
	}
	return types.Result{Events: events, Output: texts(events)}
}

func texts(events []types.Event) []string {
	var out []string
	for _, e := range events {
		if e.Text != "" {
			out = append(out, e.Text)
		}
	}
	return out
}

func (s *Session) populate(rec types.LocationRecord) {
	for _, id := range rec.NPCs {
		s.spawn(id, rec.ID)
	}
	for _, id := range rec.Items {
		s.dropItem(id, 1, rec.ID)
	}
}

func (s *Session) rollSpawns(rec types.LocationRecord) {
	for _, e := range s.arena.At(rec.ID) {
		if e.Kind.Hostile() {
			return
		}
	}
	for _, row := range rec.Spawns {
		if s.rng.Chance(row.Chance) {
			s.spawn(row.TemplateID, rec.ID)
		}
	}
}

func (s *Session) spawn(templateID, location string) (types.Entity, bool) {
	tpl, ok := s.content.Entity(templateID)
	if !ok {
		s.log.WithField("template", templateID).Warn("unknown entity template, not spawned")
		return types.Entity{}, false
	}
	return s.arena.Spawn(tpl, location), true
}

func (s *Session) dropItem(itemID string, qty int, location string) (types.Entity, bool) {
	it, ok := s.content.Item(itemID)
	if !ok {
		s.log.WithField("item", itemID).Warn("unknown item, not placed")
		return types.Entity{}, false
	}
	return s.arena.Spawn(types.Entity{
		TemplateID: itemID,
		Name:       it.Name,
		Kind:       types.EntityItem,
		ItemID:     itemID,
		Quantity:   qty,
	}, location), true
}

// presence lists who and what is here.
func (s *Session) presence() []types.Event {
	here := s.Here()
	if len(here) == 0 {
		return nil
	}
	counts := map[string]int{}
	var names []string
	for _, e := range here {
		if counts[e.Name] == 0 {
			names = append(names, e.Name)
		}
		counts[e.Name] += max(1, e.Quantity)
	}
	sort.Strings(names)
	for i, n := range names {
		if counts[n] > 1 {
			names[i] = fmt.Sprintf("%s (x%d)", n, counts[n])
		}
	}
	return []types.Event{{
		Type: types.EventNarrative,
		Text: "You see: " + strings.Join(names, ", ") + ".",
	}}
}

func (s *Session) track(a progression.Activity) []types.Event {
	quests, events := progression.UpdateFromEvent(s.quests, a)
	s.quests = quests
	return events
}
