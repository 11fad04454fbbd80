package session

import (
	"fmt"

	"github.com/nathoo/wayfarer/engine"
	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/progression"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/save"
	"github.com/nathoo/wayfarer/types"
)

// Snapshot captures everything needed to resume this session. It is
// refused mid-fight since encounters are not persisted.
func (s *Session) Snapshot() (save.Bundle, error) {
	if s.fight != nil {
		return save.Bundle{}, ErrInCombat
	}
	stats := player.Clone(s.stats)
	b := save.Bundle{
		Version:      save.CurrentVersion,
		ID:           s.id,
		Game:         s.content.Game.Title,
		Stats:        stats,
		Quests:       progression.CloneQuests(s.quests),
		Achievements: append([]types.Achievement{}, stats.Achievements...),
		Registry:     s.Registry(),
		Entities:     s.arena.All(),
		NextHandle:   s.arena.NextHandle(),
		Log:          s.Log(),
		RNG:          save.RNGState{Seed: s.rng.Seed(), Position: s.rng.Position()},
	}
	b.Stats.Achievements = nil
	return b, nil
}

// Restore replaces the session state with b. The bundle is validated
// first and nothing changes if any part of it is rejected. Achievements
// the content defines but the bundle lacks are added, locked.
func (s *Session) Restore(b *save.Bundle) error {
	if s.fight != nil {
		return ErrInCombat
	}
	if err := save.Validate(b); err != nil {
		return err
	}
	arena, err := registry.RestoreArena(b.Entities, b.NextHandle)
	if err != nil {
		return fmt.Errorf("restoring entities: %w", err)
	}

	stats := player.Clone(b.Stats)
	stats.Achievements = mergeAchievements(b.Achievements, s.content.Achievements)
	reg := make(map[string]types.LocationRecord, len(b.Registry))
	for id, l := range b.Registry {
		reg[id] = registry.CloneLocation(l)
	}
	if _, ok := reg[stats.LocationID]; !ok {
		return fmt.Errorf("restoring: player location %q was never discovered", stats.LocationID)
	}

	s.stats = stats
	s.quests = progression.CloneQuests(b.Quests)
	if s.quests == nil {
		s.quests = []types.Quest{}
	}
	s.arena = arena
	s.registry = reg
	s.revision++
	s.graphs.Invalidate()
	s.history = append([]string{}, b.Log...)
	s.rng = engine.RestoreRNG(b.RNG.Seed, b.RNG.Position)
	s.talks = map[types.Handle]int{}
	if b.ID != "" {
		s.id = b.ID
		s.log = s.log.WithField("session", b.ID)
	}
	s.ready = true
	s.log.WithField("location", stats.LocationID).Info("session restored")
	s.commit(nil)
	return nil
}

func mergeAchievements(saved, defined []types.Achievement) []types.Achievement {
	out := append([]types.Achievement{}, saved...)
	have := make(map[string]bool, len(saved))
	for _, a := range saved {
		have[a.ID] = true
	}
	for _, a := range defined {
		if !have[a.ID] {
			a.Unlocked = false
			out = append(out, a)
		}
	}
	return out
}
