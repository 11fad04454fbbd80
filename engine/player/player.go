// Package player implements the PlayerStats mutations. Every function takes
// the record by value and returns a new one; the input is never modified,
// and an error return means nothing was applied.
package player

import (
	"errors"
	"fmt"

	"github.com/nathoo/wayfarer/types"
)

var (
	ErrNoItem       = errors.New("item not in inventory")
	ErrNotEquipment = errors.New("item cannot be equipped")
	ErrNotUsable    = errors.New("item has no usable effect")
	ErrEmptySlot    = errors.New("nothing equipped in that slot")
	ErrNoPet        = errors.New("no such pet")
)

// Clone returns a deep copy of p.
func Clone(p types.PlayerStats) types.PlayerStats {
	p.Inventory = cloneItems(p.Inventory)
	eq := make(map[types.EquipSlot]types.Item, len(p.Equipment))
	for slot, it := range p.Equipment {
		eq[slot] = cloneItem(it)
	}
	p.Equipment = eq
	p.Pets = append([]types.Pet(nil), p.Pets...)
	p.Achievements = append([]types.Achievement(nil), p.Achievements...)
	p.UnlockedTitles = append([]string(nil), p.UnlockedTitles...)
	return p
}

func cloneItem(it types.Item) types.Item {
	if it.Effect != nil {
		eff := *it.Effect
		it.Effect = &eff
	}
	return it
}

func cloneItems(items []types.Item) []types.Item {
	if items == nil {
		return nil
	}
	out := make([]types.Item, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}

// FindItem returns the inventory record for id.
func FindItem(p types.PlayerStats, id string) (types.Item, bool) {
	for _, it := range p.Inventory {
		if it.ID == id {
			return cloneItem(it), true
		}
	}
	return types.Item{}, false
}

// CountItem returns how many units of id the player carries.
func CountItem(p types.PlayerStats, id string) int {
	if it, ok := FindItem(p, id); ok {
		return it.Quantity
	}
	return 0
}

// AddItem adds it to the inventory, coalescing with an existing record of
// the same ID. A non-positive quantity counts as one unit.
func AddItem(p types.PlayerStats, it types.Item) types.PlayerStats {
	p = Clone(p)
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	for i := range p.Inventory {
		if p.Inventory[i].ID == it.ID {
			p.Inventory[i].Quantity += it.Quantity
			return p
		}
	}
	p.Inventory = append(p.Inventory, cloneItem(it))
	return p
}

// RemoveItem takes qty units of id out of the inventory. The record is
// dropped once its quantity reaches zero.
func RemoveItem(p types.PlayerStats, id string, qty int) (types.PlayerStats, error) {
	if qty <= 0 {
		qty = 1
	}
	have := CountItem(p, id)
	if have == 0 {
		return p, fmt.Errorf("remove %s: %w", id, ErrNoItem)
	}
	if have < qty {
		return p, fmt.Errorf("remove %d %s: only %d carried", qty, id, have)
	}
	p = Clone(p)
	for i := range p.Inventory {
		if p.Inventory[i].ID != id {
			continue
		}
		p.Inventory[i].Quantity -= qty
		if p.Inventory[i].Quantity == 0 {
			p.Inventory = append(p.Inventory[:i], p.Inventory[i+1:]...)
		}
		break
	}
	return p, nil
}

// ApplyBonus adds (sign=+1) or removes (sign=-1) a stat bonus. When a max
// stat drops below its current value the current value is clamped.
func ApplyBonus(p types.PlayerStats, b types.StatBonus, sign int) types.PlayerStats {
	p.MaxHP += sign * b.MaxHP
	p.MaxMP += sign * b.MaxMP
	p.Attack += sign * b.Attack
	p.Defense += sign * b.Defense
	p.Speed += sign * b.Speed
	if p.HP > p.MaxHP {
		p.HP = p.MaxHP
	}
	if p.MP > p.MaxMP {
		p.MP = p.MaxMP
	}
	return p
}

// Equip moves one unit of id from the inventory into its slot. Whatever was
// in the slot goes back to the inventory and its bonus is removed.
func Equip(p types.PlayerStats, id string) (types.PlayerStats, error) {
	it, ok := FindItem(p, id)
	if !ok {
		return p, fmt.Errorf("equip %s: %w", id, ErrNoItem)
	}
	if it.Category != types.ItemEquipment || !it.Slot.Valid() {
		return p, fmt.Errorf("equip %s: %w", id, ErrNotEquipment)
	}

	next, err := RemoveItem(p, id, 1)
	if err != nil {
		return p, err
	}
	if old, ok := next.Equipment[it.Slot]; ok {
		next = ApplyBonus(next, old.Bonus, -1)
		next = AddItem(next, old)
	}
	it.Quantity = 1
	next.Equipment[it.Slot] = it
	return ApplyBonus(next, it.Bonus, 1), nil
}

// Unequip returns the item in slot to the inventory.
func Unequip(p types.PlayerStats, slot types.EquipSlot) (types.PlayerStats, error) {
	old, ok := p.Equipment[slot]
	if !ok {
		return p, fmt.Errorf("unequip %s: %w", slot, ErrEmptySlot)
	}
	next := Clone(p)
	delete(next.Equipment, slot)
	next = ApplyBonus(next, old.Bonus, -1)
	return AddItem(next, old), nil
}

// UseItem consumes one unit of a consumable and applies its effect. The
// applied effect is returned with Amount set to what actually took hold
// after clamping.
func UseItem(p types.PlayerStats, id string) (types.PlayerStats, types.ItemEffect, error) {
	it, ok := FindItem(p, id)
	if !ok {
		return p, types.ItemEffect{}, fmt.Errorf("use %s: %w", id, ErrNoItem)
	}
	if it.Category != types.ItemConsumable || it.Effect == nil {
		return p, types.ItemEffect{}, fmt.Errorf("use %s: %w", id, ErrNotUsable)
	}
	next, err := RemoveItem(p, id, 1)
	if err != nil {
		return p, types.ItemEffect{}, err
	}

	applied := types.ItemEffect{Kind: it.Effect.Kind}
	switch it.Effect.Kind {
	case types.EffectHeal:
		before := next.HP
		next.HP = clamp(next.HP+it.Effect.Amount, 0, next.MaxHP)
		applied.Amount = next.HP - before
	case types.EffectRestoreMP:
		before := next.MP
		next.MP = clamp(next.MP+it.Effect.Amount, 0, next.MaxMP)
		applied.Amount = next.MP - before
	default:
		return p, types.ItemEffect{}, fmt.Errorf("use %s: unknown effect %q: %w", id, it.Effect.Kind, ErrNotUsable)
	}
	return next, applied, nil
}

// AddPet appends a pet to the roster. The first pet becomes active.
func AddPet(p types.PlayerStats, pet types.Pet) types.PlayerStats {
	p = Clone(p)
	p.Pets = append(p.Pets, pet)
	if p.ActivePet == 0 {
		p.ActivePet = pet.ID
	}
	return p
}

// SetActivePet selects the pet that joins combat. Zero clears it.
func SetActivePet(p types.PlayerStats, id types.Handle) (types.PlayerStats, error) {
	if id != 0 {
		if _, ok := FindPet(p, id); !ok {
			return p, fmt.Errorf("pet %d: %w", id, ErrNoPet)
		}
	}
	p = Clone(p)
	p.ActivePet = id
	return p, nil
}

// FindPet looks a pet up by handle.
func FindPet(p types.PlayerStats, id types.Handle) (types.Pet, bool) {
	for _, pet := range p.Pets {
		if pet.ID == id {
			return pet, true
		}
	}
	return types.Pet{}, false
}

// ActivePet returns the active pet, if any.
func ActivePet(p types.PlayerStats) (types.Pet, bool) {
	if p.ActivePet == 0 {
		return types.Pet{}, false
	}
	return FindPet(p, p.ActivePet)
}

// UpdatePet replaces a roster entry, e.g. to persist pet hp after combat.
func UpdatePet(p types.PlayerStats, pet types.Pet) types.PlayerStats {
	p = Clone(p)
	for i := range p.Pets {
		if p.Pets[i].ID == pet.ID {
			p.Pets[i] = pet
		}
	}
	return p
}

// RevivePets brings every knocked-out pet back with fraction of its max
// hp, at least 1. It returns the revived pets' names.
func RevivePets(p types.PlayerStats, fraction float64) (types.PlayerStats, []string) {
	p = Clone(p)
	var revived []string
	for i := range p.Pets {
		pet := &p.Pets[i]
		if pet.HP > 0 {
			continue
		}
		pet.HP = min(max(1, int(float64(pet.MaxHP)*fraction)), max(1, pet.MaxHP))
		revived = append(revived, pet.Name)
	}
	return p, revived
}

// ApplyDelta folds a stats delta into p. HP and MP are clamped to their
// maxima and gold never goes negative. Exp is ignored here; leveling owns
// it. Item removals that cannot be satisfied fail the whole delta.
func ApplyDelta(p types.PlayerStats, d types.StatsDelta) (types.PlayerStats, error) {
	next := Clone(p)
	for _, id := range d.RemoveItems {
		var err error
		next, err = RemoveItem(next, id, 1)
		if err != nil {
			return p, fmt.Errorf("apply delta: %w", err)
		}
	}
	for _, it := range d.Items {
		next = AddItem(next, it)
	}
	next.HP = clamp(next.HP+d.HP, 0, next.MaxHP)
	next.MP = clamp(next.MP+d.MP, 0, next.MaxMP)
	next.Gold += d.Gold
	if next.Gold < 0 {
		next.Gold = 0
	}
	next.Reputation += d.Reputation
	return next, nil
}

// IsDead reports whether the player is at zero hp.
func IsDead(p types.PlayerStats) bool {
	return p.HP <= 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
