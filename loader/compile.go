// Package loader loads Lua game content into Go structs at startup.
// The Lua VM is discarded after loading; nothing runs Lua during play.
package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/engine/registry"
	"github.com/nathoo/wayfarer/engine/world"
	"github.com/nathoo/wayfarer/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getIntOr returns an int field, or def when the field is absent.
func getIntOr(tbl *lua.LTable, key string, def int) int {
	if _, ok := tbl.RawGetString(key).(lua.LNumber); !ok {
		return def
	}
	return getInt(tbl, key)
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the array part of a table field as strings.
func getStrings(tbl *lua.LTable, key string) []string {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var out []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// getTables returns the array part of a table field as tables.
func getTables(tbl *lua.LTable, key string) []*lua.LTable {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= arr.MaxN(); i++ {
		if t, ok := arr.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// stringKeys returns the string keys of a table, sorted.
func stringKeys(tbl *lua.LTable) []string {
	var keys []string
	tbl.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			keys = append(keys, string(ks))
		}
	})
	sort.Strings(keys)
	return keys
}

// compile converts all collected Lua data into Content.
func compile(coll *collector) (*registry.Content, error) {
	if coll.game == nil {
		return nil, fmt.Errorf("no Game{} definition found")
	}
	c := registry.NewContent()
	c.Game = compileGame(coll.game)

	for _, raw := range coll.items {
		if _, dup := c.Items[raw.id]; dup {
			return nil, fmt.Errorf("duplicate item %q", raw.id)
		}
		c.Items[raw.id] = compileItem(raw)
	}
	for _, raw := range coll.entities {
		if _, dup := c.Entities[raw.id]; dup {
			return nil, fmt.Errorf("duplicate entity %q", raw.id)
		}
		c.Entities[raw.id] = compileEntity(raw)
	}
	for _, raw := range coll.locations {
		if _, dup := c.Locations[raw.id]; dup {
			return nil, fmt.Errorf("duplicate location %q", raw.id)
		}
		c.Locations[raw.id] = compileLocation(raw)
	}
	labelExits(c.Locations)

	for _, raw := range coll.quests {
		if _, dup := c.Quests[raw.id]; dup {
			return nil, fmt.Errorf("duplicate quest %q", raw.id)
		}
		c.Quests[raw.id] = compileQuest(raw)
	}
	for _, raw := range coll.titles {
		if _, dup := c.Titles[raw.id]; dup {
			return nil, fmt.Errorf("duplicate title %q", raw.id)
		}
		c.Titles[raw.id] = types.Title{
			ID:    raw.id,
			Name:  nameOr(raw),
			Bonus: compileBonus(getTable(raw.table, "bonus")),
		}
	}
	seen := map[string]bool{}
	for _, raw := range coll.achievements {
		if seen[raw.id] {
			return nil, fmt.Errorf("duplicate achievement %q", raw.id)
		}
		seen[raw.id] = true
		c.Achievements = append(c.Achievements, types.Achievement{
			ID:          raw.id,
			Name:        nameOr(raw),
			Description: getString(raw.table, "description"),
			Trigger:     types.AchievementTrigger(getString(raw.table, "trigger")),
			Threshold:   getInt(raw.table, "threshold"),
			RewardTitle: getString(raw.table, "title"),
		})
	}

	c.Player = compilePlayer(coll.player, c)
	return c, nil
}

func nameOr(raw rawDef) string {
	if n := getString(raw.table, "name"); n != "" {
		return n
	}
	return raw.id
}

func compileGame(tbl *lua.LTable) registry.GameInfo {
	return registry.GameInfo{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Start:   getString(tbl, "start"),
		Intro:   getString(tbl, "intro"),
	}
}

func compileBonus(tbl *lua.LTable) types.StatBonus {
	if tbl == nil {
		return types.StatBonus{}
	}
	return types.StatBonus{
		MaxHP:   getInt(tbl, "max_hp"),
		MaxMP:   getInt(tbl, "max_mp"),
		Attack:  getInt(tbl, "attack"),
		Defense: getInt(tbl, "defense"),
		Speed:   getInt(tbl, "speed"),
	}
}

func compileItem(raw rawDef) types.Item {
	tbl := raw.table
	it := types.Item{
		ID:          raw.id,
		Name:        nameOr(raw),
		Category:    types.ItemCategory(getString(tbl, "category")),
		Rarity:      types.Rarity(getString(tbl, "rarity")),
		Slot:        types.EquipSlot(getString(tbl, "slot")),
		Bonus:       compileBonus(getTable(tbl, "bonus")),
		Description: getString(tbl, "description"),
		Quantity:    1,
	}
	if it.Category == "" {
		switch {
		case it.Slot != "":
			it.Category = types.ItemEquipment
		default:
			it.Category = types.ItemMaterial
		}
	}
	if it.Rarity == "" {
		it.Rarity = types.RarityCommon
	}
	if eff := getTable(tbl, "effect"); eff != nil {
		it.Effect = &types.ItemEffect{
			Kind:   types.ItemEffectKind(getString(eff, "kind")),
			Amount: getInt(eff, "amount"),
		}
		if getString(tbl, "category") == "" {
			it.Category = types.ItemConsumable
		}
	}
	return it
}

func compileEntity(raw rawDef) types.Entity {
	tbl := raw.table
	kind := types.EntityKind(raw.kind)
	hp := getInt(tbl, "hp")
	e := types.Entity{
		TemplateID: raw.id,
		Name:       nameOr(raw),
		Kind:       kind,
		Level:      getIntOr(tbl, "level", 1),
		HP:         hp,
		MaxHP:      hp,
		Attack:     getInt(tbl, "attack"),
		Defense:    getInt(tbl, "defense"),
		Speed:      getInt(tbl, "speed"),
		ExpReward:  getInt(tbl, "exp"),
		GoldReward: getInt(tbl, "gold"),
		Dialogue:   getStrings(tbl, "dialogue"),
		QuestIDs:   getStrings(tbl, "quests"),
		Capturable: getBool(tbl, "capturable", kind == types.EntityMonster),
	}
	for _, row := range getTables(tbl, "loot") {
		e.Loot = append(e.Loot, types.LootEntry{
			ItemID: getString(row, "item"),
			Chance: getNumber(row, "chance"),
			Min:    getInt(row, "min"),
			Max:    getInt(row, "max"),
		})
	}
	return e
}

// exitOrder ranks exits so that a location's exits come out in a stable
// order regardless of Lua table iteration.
var exitOrder = map[types.Direction]int{
	types.North: 1, types.Northeast: 2, types.East: 3, types.Southeast: 4,
	types.South: 5, types.Southwest: 6, types.West: 7, types.Northwest: 8,
	types.Up: 9, types.Down: 10,
}

func compileLocation(raw rawDef) types.LocationRecord {
	tbl := raw.table
	loc := types.LocationRecord{
		ID:          raw.id,
		Name:        nameOr(raw),
		Description: getString(tbl, "description"),
		Level:       getIntOr(tbl, "level", 1),
		Items:       getStrings(tbl, "items"),
		NPCs:        getStrings(tbl, "npcs"),
	}
	for _, row := range getTables(tbl, "spawns") {
		loc.Spawns = append(loc.Spawns, types.Spawn{
			TemplateID: getString(row, "template"),
			Chance:     getNumber(row, "chance"),
		})
	}

	exits := getTable(tbl, "exits")
	if exits == nil {
		return loc
	}
	for _, key := range stringKeys(exits) {
		ex := types.Exit{}
		if d, ok := world.ParseDirection(key); ok {
			ex.Direction = d
			ex.Command = "go " + string(d)
		} else {
			ex.Command = key
		}
		switch v := exits.RawGetString(key).(type) {
		case lua.LString:
			ex.TargetID = string(v)
		case *lua.LTable:
			ex.TargetID = getString(v, "target")
			ex.Label = getString(v, "label")
			if cmd := getString(v, "command"); cmd != "" {
				ex.Command = cmd
			}
		default:
			continue
		}
		loc.Exits = append(loc.Exits, ex)
	}
	sort.SliceStable(loc.Exits, func(i, j int) bool {
		oi, oj := exitOrder[loc.Exits[i].Direction], exitOrder[loc.Exits[j].Direction]
		if oi == 0 {
			oi = len(exitOrder) + 1
		}
		if oj == 0 {
			oj = len(exitOrder) + 1
		}
		return oi < oj
	})
	return loc
}

// labelExits gives unlabeled exits the name of the location they lead to.
func labelExits(locs map[string]types.LocationRecord) {
	for id, loc := range locs {
		for i, ex := range loc.Exits {
			if ex.Label != "" {
				continue
			}
			if target, ok := locs[ex.TargetID]; ok {
				loc.Exits[i].Label = target.Name
			}
		}
		locs[id] = loc
	}
}

func compileQuest(raw rawDef) types.Quest {
	tbl := raw.table
	q := types.Quest{
		ID:          raw.id,
		Name:        nameOr(raw),
		Description: getString(tbl, "description"),
		Giver:       getString(tbl, "giver"),
		Status:      types.QuestActive,
	}
	for _, o := range getTables(tbl, "objectives") {
		q.Objectives = append(q.Objectives, types.Objective{
			Kind:     types.ObjectiveKind(getString(o, "kind")),
			Target:   getString(o, "target"),
			Required: getIntOr(o, "required", 1),
		})
	}
	if r := getTable(tbl, "reward"); r != nil {
		q.Reward = types.QuestReward{
			Exp:     getInt(r, "exp"),
			Gold:    getInt(r, "gold"),
			Items:   getStrings(r, "items"),
			TitleID: getString(r, "title"),
		}
	}
	return q
}

// compilePlayer builds the starting character. Missing stats get modest
// defaults. Starting equipment is worn, so its bonus is folded in.
func compilePlayer(tbl *lua.LTable, c *registry.Content) types.PlayerStats {
	p := types.PlayerStats{
		Name:      "Wayfarer",
		Level:     1,
		MaxExp:    100,
		MaxHP:     100,
		MaxMP:     20,
		Attack:    10,
		Defense:   5,
		Speed:     10,
		Equipment: map[types.EquipSlot]types.Item{},
	}
	if tbl != nil {
		if n := getString(tbl, "name"); n != "" {
			p.Name = n
		}
		p.Level = getIntOr(tbl, "level", p.Level)
		p.MaxExp = getIntOr(tbl, "max_exp", p.MaxExp)
		p.MaxHP = getIntOr(tbl, "hp", p.MaxHP)
		p.MaxMP = getIntOr(tbl, "mp", p.MaxMP)
		p.Attack = getIntOr(tbl, "attack", p.Attack)
		p.Defense = getIntOr(tbl, "defense", p.Defense)
		p.Speed = getIntOr(tbl, "speed", p.Speed)
		p.Gold = getInt(tbl, "gold")
	}
	p.HP, p.MP = p.MaxHP, p.MaxMP
	if tbl == nil {
		return p
	}

	if inv := getTable(tbl, "inventory"); inv != nil {
		for i := 1; i <= inv.MaxN(); i++ {
			if id, ok := inv.RawGetInt(i).(lua.LString); ok {
				p = player.AddItem(p, startingItem(c, string(id), 1))
			}
		}
		for _, id := range stringKeys(inv) {
			p = player.AddItem(p, startingItem(c, id, getInt(inv, id)))
		}
	}
	if eq := getTable(tbl, "equipment"); eq != nil {
		for _, slot := range stringKeys(eq) {
			it := startingItem(c, getString(eq, slot), 1)
			p.Equipment[types.EquipSlot(slot)] = it
			p = player.ApplyBonus(p, it.Bonus, 1)
		}
	}
	return p
}

// startingItem returns qty units of an item. Unknown IDs produce a bare
// record so validation can report them.
func startingItem(c *registry.Content, id string, qty int) types.Item {
	it, ok := c.Item(id)
	if !ok {
		it = types.Item{ID: id, Name: id}
	}
	it.Quantity = qty
	return it
}
