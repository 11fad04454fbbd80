// Package registry holds the read-only content templates (monsters, NPCs,
// items, locations, quests, achievements, titles) and the Arena that
// spawns entity instances with stable, never-reused handles.
package registry

import (
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/types"
)

// GameInfo holds game metadata.
type GameInfo struct {
	Title   string
	Author  string
	Version string
	Start   string // starting location ID
	Intro   string
}

// Content is the immutable reference data loaded at startup. Accessors
// return copies so callers can never write through to the templates.
type Content struct {
	Game         GameInfo
	Player       types.PlayerStats
	Entities     map[string]types.Entity
	Items        map[string]types.Item
	Locations    map[string]types.LocationRecord
	Quests       map[string]types.Quest
	Achievements []types.Achievement
	Titles       map[string]types.Title
}

// NewContent returns empty content with all maps allocated.
func NewContent() *Content {
	return &Content{
		Entities:  map[string]types.Entity{},
		Items:     map[string]types.Item{},
		Locations: map[string]types.LocationRecord{},
		Quests:    map[string]types.Quest{},
		Titles:    map[string]types.Title{},
	}
}

// Entity returns a copy of the entity template.
func (c *Content) Entity(id string) (types.Entity, bool) {
	e, ok := c.Entities[id]
	if !ok {
		return types.Entity{}, false
	}
	return CloneEntity(e), true
}

// Item returns a single unit of the item template.
func (c *Content) Item(id string) (types.Item, bool) {
	it, ok := c.Items[id]
	if !ok {
		return types.Item{}, false
	}
	it.Quantity = 1
	if it.Effect != nil {
		eff := *it.Effect
		it.Effect = &eff
	}
	return it, true
}

// ItemName returns the display name of an item, or its ID if unknown.
func (c *Content) ItemName(id string) string {
	if it, ok := c.Items[id]; ok && it.Name != "" {
		return it.Name
	}
	return id
}

// Quest returns a fresh, active copy of the quest template.
func (c *Content) Quest(id string) (types.Quest, bool) {
	q, ok := c.Quests[id]
	if !ok {
		return types.Quest{}, false
	}
	q.Objectives = append([]types.Objective(nil), q.Objectives...)
	for i := range q.Objectives {
		q.Objectives[i].Current = 0
	}
	q.Reward.Items = append([]string(nil), q.Reward.Items...)
	q.Status = types.QuestActive
	return q, true
}

// Title returns the title template.
func (c *Content) Title(id string) (types.Title, bool) {
	t, ok := c.Titles[id]
	return t, ok
}

// Location returns a copy of an authored location.
func (c *Content) Location(id string) (types.LocationRecord, bool) {
	loc, ok := c.Locations[id]
	if !ok {
		return types.LocationRecord{}, false
	}
	return CloneLocation(loc), true
}

// FindLocation resolves an ID or a case-insensitive display name.
func (c *Content) FindLocation(idOrName string) (types.LocationRecord, bool) {
	if loc, ok := c.Location(idOrName); ok {
		return loc, true
	}
	lower := strings.ToLower(idOrName)
	ids := make([]string, 0, len(c.Locations))
	for id := range c.Locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if strings.ToLower(c.Locations[id].Name) == lower {
			return c.Location(id)
		}
	}
	return types.LocationRecord{}, false
}

// NewPlayer returns a fresh player built from the template. Achievements
// are seeded from content, all locked.
func (c *Content) NewPlayer() types.PlayerStats {
	p := c.Player
	p.Inventory = append([]types.Item(nil), c.Player.Inventory...)
	p.Equipment = map[types.EquipSlot]types.Item{}
	for slot, it := range c.Player.Equipment {
		p.Equipment[slot] = it
	}
	p.Pets = []types.Pet{}
	p.UnlockedTitles = []string{}
	p.Achievements = make([]types.Achievement, len(c.Achievements))
	for i, a := range c.Achievements {
		a.Unlocked = false
		p.Achievements[i] = a
	}
	if p.LocationID == "" {
		p.LocationID = c.Game.Start
	}
	if loc, ok := c.Locations[p.LocationID]; ok && p.LocationName == "" {
		p.LocationName = loc.Name
	}
	return p
}

// CloneEntity deep-copies an entity's slices.
func CloneEntity(e types.Entity) types.Entity {
	e.Loot = append([]types.LootEntry(nil), e.Loot...)
	e.Dialogue = append([]string(nil), e.Dialogue...)
	e.QuestIDs = append([]string(nil), e.QuestIDs...)
	return e
}

// CloneLocation deep-copies a location record.
func CloneLocation(l types.LocationRecord) types.LocationRecord {
	l.Exits = append([]types.Exit(nil), l.Exits...)
	l.Spawns = append([]types.Spawn(nil), l.Spawns...)
	l.Items = append([]string(nil), l.Items...)
	l.NPCs = append([]string(nil), l.NPCs...)
	return l
}
