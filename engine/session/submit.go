package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/narrative"
	"github.com/nathoo/wayfarer/types"
)

// Submit sends free text to the narrative service and applies what comes
// back: stat changes, quest offers and progress, spawns, and a new
// location. A failed call changes nothing.
func (s *Session) Submit(ctx context.Context, text string) (types.Result, error) {
	if err := s.canExplore(); err != nil {
		return types.Result{}, err
	}
	res, err := s.svc.SubmitCommand(ctx, text, s.narrativeContext())
	return s.applyCommand(ctx, res, err)
}

// SubmitStream is Submit with progressive narration: onChunk sees each
// piece of text as it arrives, and the result is applied once the stream
// completes.
func (s *Session) SubmitStream(ctx context.Context, text string, onChunk func(narrative.Chunk)) (types.Result, error) {
	if err := s.canExplore(); err != nil {
		return types.Result{}, err
	}
	chunks, done := narrative.Stream(ctx, s.svc, text, s.narrativeContext())
	res, err := narrative.Collect(chunks, done, onChunk)
	return s.applyCommand(ctx, res, err)
}

func (s *Session) applyCommand(ctx context.Context, res narrative.CommandResult, err error) (types.Result, error) {
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, narrative.ErrMissingCredentials) {
			return types.Result{}, &HostError{Op: "submitting command", Err: err}
		}
		s.log.WithError(err).Warn("narrative command failed")
		return s.commit([]types.Event{{Type: types.EventError, Text: "Nothing seems to happen."}}), nil
	}

	events := narrate(res.Narrative)
	evs, err := s.applyDelta(res.Delta)
	if err != nil {
		s.log.WithError(err).Warn("narrative delta rejected")
		events = append(events, warn("The world seems to change its mind.")...)
	}
	events = append(events, evs...)
	events = append(events, s.applyQuestDeltas(res.Quests)...)

	if res.Location != nil && res.Location.ID != "" && res.Location.ID != s.stats.LocationID {
		rec := *res.Location
		if existing, ok := s.registry[rec.ID]; ok {
			rec = existing
		}
		events = append(events, s.arrive(rec)...)
	}
	for _, id := range res.Spawns {
		if e, ok := s.spawn(id, s.stats.LocationID); ok {
			events = append(events, types.Event{
				Type: types.EventNarrative,
				Text: fmt.Sprintf("%s appears.", e.Name),
			})
		}
	}
	events = append(events, s.evaluate(progression.Facts{})...)
	return s.commit(events), nil
}

// applyDelta folds a narrative stats delta into the player. Exp goes
// through leveling and new items count toward collect objectives. A delta
// whose item removals cannot be satisfied is rejected whole.
func (s *Session) applyDelta(d types.StatsDelta) ([]types.Event, error) {
	stats, err := player.ApplyDelta(s.stats, d)
	if err != nil {
		return nil, err
	}
	var events []types.Event
	stats, events = progression.ApplyExpGain(stats, d.Exp, s.cfg.Progression)
	s.stats = stats

	for _, it := range d.Items {
		qty := max(1, it.Quantity)
		events = append(events, types.Event{
			Type: types.EventItemTaken,
			Text: fmt.Sprintf("Received: %s x%d.", it.Name, qty),
			Data: map[string]any{"item": it.ID, "quantity": qty},
		})
		events = append(events, s.track(progression.Activity{
			Kind: types.ObjectiveCollect, TemplateID: it.ID, Name: it.Name, Quantity: qty,
		})...)
	}
	return events, nil
}

func (s *Session) applyQuestDeltas(deltas []narrative.QuestDelta) []types.Event {
	var events []types.Event
	for _, qd := range deltas {
		if qd.Add != "" {
			q, ok := s.content.Quest(qd.Add)
			if !ok {
				s.log.WithField("quest", qd.Add).Warn("narrative offered unknown quest")
				continue
			}
			var evs []types.Event
			s.quests, evs, _ = progression.AddQuest(s.quests, q)
			events = append(events, evs...)
			continue
		}
		if !qd.Kind.Valid() || strings.TrimSpace(qd.Target) == "" {
			continue
		}
		events = append(events, s.track(progression.Activity{
			Kind: qd.Kind, TemplateID: qd.Target, Name: qd.Target, Quantity: max(1, qd.Quantity),
		})...)
	}
	return events
}
