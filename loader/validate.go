package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/logging"
	"github.com/nathoo/wayfarer/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func (e *ValidationError) errorf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

var validRarities = map[types.Rarity]bool{
	types.RarityCommon: true, types.RarityUncommon: true, types.RarityRare: true,
	types.RarityEpic: true, types.RarityLegendary: true,
}

var validEffects = map[types.ItemEffectKind]bool{
	types.EffectHeal:      true,
	types.EffectRestoreMP: true,
}

// validate checks cross-references and value ranges in compiled content.
// Exits and explore objectives may name locations that are not authored;
// those are generated on first visit, so they only warn.
func validate(c *registry.Content) error {
	ve := &ValidationError{}

	if c.Game.Title == "" {
		ve.errorf("Game.Title is required")
	}
	if c.Game.Start == "" {
		ve.errorf("Game.Start is required")
	} else if _, ok := c.Locations[c.Game.Start]; !ok {
		ve.errorf("start location %q does not exist", c.Game.Start)
	}

	validateItems(c, ve)
	validateEntities(c, ve)
	validateLocations(c, ve)
	validateQuests(c, ve)
	validateProgression(c, ve)
	validatePlayer(c, ve)

	log := logging.For("loader")
	for _, w := range ve.Warnings {
		log.Warn(w)
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateItems(c *registry.Content, ve *ValidationError) {
	for _, id := range sortedKeys(c.Items) {
		it := c.Items[id]
		if !it.Category.Valid() {
			ve.errorf("item %q has unknown category %q", id, it.Category)
		}
		if !validRarities[it.Rarity] {
			ve.errorf("item %q has unknown rarity %q", id, it.Rarity)
		}
		switch it.Category {
		case types.ItemEquipment:
			if !it.Slot.Valid() {
				ve.errorf("equipment %q needs a slot (weapon, armor, accessory), got %q", id, it.Slot)
			}
		case types.ItemConsumable:
			if it.Effect == nil {
				ve.errorf("consumable %q has no effect", id)
			} else {
				if !validEffects[it.Effect.Kind] {
					ve.errorf("consumable %q has unknown effect %q", id, it.Effect.Kind)
				}
				if it.Effect.Amount <= 0 {
					ve.errorf("consumable %q effect amount must be positive", id)
				}
			}
		}
		if it.Slot != "" && it.Category != types.ItemEquipment {
			ve.warnf("item %q has a slot but is not equipment", id)
		}
	}
}

func validateEntities(c *registry.Content, ve *ValidationError) {
	for _, id := range sortedKeys(c.Entities) {
		e := c.Entities[id]
		if e.Kind.Hostile() {
			if e.MaxHP <= 0 {
				ve.errorf("%s %q must have hp > 0", e.Kind, id)
			}
			if e.Speed <= 0 {
				ve.errorf("%s %q must have speed > 0", e.Kind, id)
			}
		}
		if e.Kind == types.EntityNPC && len(e.Dialogue) == 0 {
			ve.warnf("npc %q has no dialogue", id)
		}
		for _, row := range e.Loot {
			if _, ok := c.Items[row.ItemID]; !ok {
				ve.errorf("%q drops undefined item %q", id, row.ItemID)
			}
			if row.Chance < 0 || row.Chance > 1 {
				ve.errorf("%q drop chance for %q must be in [0,1], got %g", id, row.ItemID, row.Chance)
			}
			if row.Min < 0 || row.Max < row.Min {
				ve.errorf("%q drop range for %q is invalid (%d..%d)", id, row.ItemID, row.Min, row.Max)
			}
		}
		for _, q := range e.QuestIDs {
			if _, ok := c.Quests[q]; !ok {
				ve.errorf("%q offers undefined quest %q", id, q)
			}
		}
	}
}

func validateLocations(c *registry.Content, ve *ValidationError) {
	for _, id := range sortedKeys(c.Locations) {
		loc := c.Locations[id]
		if loc.Description == "" {
			ve.warnf("location %q has no description", id)
		}
		for _, ex := range loc.Exits {
			if ex.TargetID == "" {
				ve.errorf("location %q exit %q has no target", id, ex.Command)
				continue
			}
			if _, ok := c.Locations[ex.TargetID]; !ok {
				ve.warnf("location %q exit %q leads to %q, which will be generated", id, ex.Command, ex.TargetID)
			}
		}
		for _, sp := range loc.Spawns {
			e, ok := c.Entities[sp.TemplateID]
			switch {
			case !ok:
				ve.errorf("location %q spawns undefined entity %q", id, sp.TemplateID)
			case !e.Kind.Hostile():
				ve.errorf("location %q spawns %q, which is not a monster or boss", id, sp.TemplateID)
			}
			if sp.Chance < 0 || sp.Chance > 1 {
				ve.errorf("location %q spawn chance for %q must be in [0,1], got %g", id, sp.TemplateID, sp.Chance)
			}
		}
		for _, it := range loc.Items {
			if _, ok := c.Items[it]; !ok {
				ve.errorf("location %q places undefined item %q", id, it)
			}
		}
		for _, npc := range loc.NPCs {
			e, ok := c.Entities[npc]
			switch {
			case !ok:
				ve.errorf("location %q places undefined entity %q", id, npc)
			case e.Kind.Hostile():
				ve.warnf("location %q places hostile %q as a resident", id, npc)
			}
		}
	}
}

func validateQuests(c *registry.Content, ve *ValidationError) {
	for _, id := range sortedKeys(c.Quests) {
		q := c.Quests[id]
		if len(q.Objectives) == 0 {
			ve.errorf("quest %q has no objectives", id)
		}
		if q.Giver != "" {
			if _, ok := c.Entities[q.Giver]; !ok {
				ve.warnf("quest %q giver %q is not defined", id, q.Giver)
			}
		}
		for _, o := range q.Objectives {
			if !o.Kind.Valid() {
				ve.errorf("quest %q has unknown objective kind %q", id, o.Kind)
				continue
			}
			if o.Required <= 0 {
				ve.errorf("quest %q objective %s %q must require at least 1", id, o.Kind, o.Target)
			}
			switch o.Kind {
			case types.ObjectiveKill, types.ObjectiveTalk:
				if _, ok := c.Entities[o.Target]; !ok {
					ve.errorf("quest %q objective %s targets undefined entity %q", id, o.Kind, o.Target)
				}
			case types.ObjectiveCollect:
				if _, ok := c.Items[o.Target]; !ok {
					ve.errorf("quest %q objective collect targets undefined item %q", id, o.Target)
				}
			case types.ObjectiveExplore:
				if _, ok := c.Locations[o.Target]; !ok {
					ve.warnf("quest %q objective explore targets %q, which is not authored", id, o.Target)
				}
			}
		}
		for _, it := range q.Reward.Items {
			if _, ok := c.Items[it]; !ok {
				ve.errorf("quest %q rewards undefined item %q", id, it)
			}
		}
		if q.Reward.TitleID != "" {
			if _, ok := c.Titles[q.Reward.TitleID]; !ok {
				ve.errorf("quest %q rewards undefined title %q", id, q.Reward.TitleID)
			}
		}
		if q.Reward.Exp < 0 || q.Reward.Gold < 0 {
			ve.errorf("quest %q reward must not be negative", id)
		}
	}
}

func validateProgression(c *registry.Content, ve *ValidationError) {
	for _, id := range sortedKeys(c.Titles) {
		b := c.Titles[id].Bonus
		if b.MaxHP < 0 || b.MaxMP < 0 || b.Attack < 0 || b.Defense < 0 || b.Speed < 0 {
			ve.errorf("title %q bonus must not be negative", id)
		}
	}
	for _, a := range c.Achievements {
		if !a.Trigger.Valid() {
			ve.errorf("achievement %q has unknown trigger %q", a.ID, a.Trigger)
		}
		if a.Threshold < 0 {
			ve.errorf("achievement %q threshold must not be negative", a.ID)
		}
		if a.RewardTitle != "" {
			if _, ok := c.Titles[a.RewardTitle]; !ok {
				ve.errorf("achievement %q rewards undefined title %q", a.ID, a.RewardTitle)
			}
		}
	}
}

func validatePlayer(c *registry.Content, ve *ValidationError) {
	p := c.Player
	if p.MaxHP <= 0 {
		ve.errorf("Player.hp must be > 0")
	}
	if p.Speed <= 0 {
		ve.errorf("Player.speed must be > 0")
	}
	for _, it := range p.Inventory {
		if _, ok := c.Items[it.ID]; !ok {
			ve.errorf("Player inventory holds undefined item %q", it.ID)
		}
	}
	for slot, it := range p.Equipment {
		if !slot.Valid() {
			ve.errorf("Player equipment uses unknown slot %q", slot)
			continue
		}
		tpl, ok := c.Items[it.ID]
		switch {
		case !ok:
			ve.errorf("Player equipment holds undefined item %q", it.ID)
		case tpl.Slot != slot:
			ve.errorf("Player equips %q in %s, but it fits %q", it.ID, slot, tpl.Slot)
		}
	}
}
