package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a curried definition table before compilation.
type rawDef struct {
	id    string
	kind  string
	table *lua.LTable
}

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Game { title = "...", start = "..." }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Player { name = "...", hp = 100, inventory = { potion = 2 } }
	L.SetGlobal("Player", L.NewFunction(func(L *lua.LState) int {
		coll.player = L.CheckTable(1)
		return 0
	}))

	// The rest are curried: Monster "slime" { ... }.
	entity := func(kind string) func(rawDef) {
		return func(d rawDef) {
			d.kind = kind
			coll.entities = append(coll.entities, d)
		}
	}
	curried(L, "Monster", entity("monster"))
	curried(L, "Boss", entity("boss"))
	curried(L, "NPC", entity("npc"))
	curried(L, "Item", func(d rawDef) { coll.items = append(coll.items, d) })
	curried(L, "Location", func(d rawDef) { coll.locations = append(coll.locations, d) })
	curried(L, "Quest", func(d rawDef) { coll.quests = append(coll.quests, d) })
	curried(L, "Achievement", func(d rawDef) { coll.achievements = append(coll.achievements, d) })
	curried(L, "Title", func(d rawDef) { coll.titles = append(coll.titles, d) })
}

// curried registers name("id") as a function that returns a second
// function taking the definition table.
func curried(L *lua.LState, name string, add func(rawDef)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			add(rawDef{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))
}

// registerHelpers registers the small table builders used inside
// definitions: effects, loot rows, spawns, exits, and objectives.
func registerHelpers(L *lua.LState) {
	// Heal(30), RestoreMP(10)
	L.SetGlobal("Heal", L.NewFunction(func(L *lua.LState) int {
		L.Push(makeTable(L, map[string]lua.LValue{
			"kind":   lua.LString("heal"),
			"amount": lua.LNumber(L.CheckInt(1)),
		}))
		return 1
	}))
	L.SetGlobal("RestoreMP", L.NewFunction(func(L *lua.LState) int {
		L.Push(makeTable(L, map[string]lua.LValue{
			"kind":   lua.LString("restore_mp"),
			"amount": lua.LNumber(L.CheckInt(1)),
		}))
		return 1
	}))

	// Drop("slime_gel", 0.8) or Drop("slime_gel", 0.8, 1, 3)
	L.SetGlobal("Drop", L.NewFunction(func(L *lua.LState) int {
		lo := L.OptInt(3, 1)
		hi := L.OptInt(4, lo)
		L.Push(makeTable(L, map[string]lua.LValue{
			"item":   lua.LString(L.CheckString(1)),
			"chance": L.CheckNumber(2),
			"min":    lua.LNumber(lo),
			"max":    lua.LNumber(hi),
		}))
		return 1
	}))

	// Spawn("slime", 0.5)
	L.SetGlobal("Spawn", L.NewFunction(func(L *lua.LState) int {
		L.Push(makeTable(L, map[string]lua.LValue{
			"template": lua.LString(L.CheckString(1)),
			"chance":   L.CheckNumber(2),
		}))
		return 1
	}))

	// Exit("cave", { label = "A narrow crack", command = "squeeze through" })
	L.SetGlobal("Exit", L.NewFunction(func(L *lua.LState) int {
		fields := map[string]lua.LValue{"target": lua.LString(L.CheckString(1))}
		if opts := L.OptTable(2, nil); opts != nil {
			fields["label"] = opts.RawGetString("label")
			fields["command"] = opts.RawGetString("command")
		}
		L.Push(makeTable(L, fields))
		return 1
	}))

	// Kill("slime", 3), Collect("slime_gel", 2), Talk("elder"), Explore("forest")
	for name, kind := range map[string]string{
		"Kill":    "kill",
		"Collect": "collect",
		"Talk":    "talk",
		"Explore": "explore",
	} {
		L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
			L.Push(makeTable(L, map[string]lua.LValue{
				"kind":     lua.LString(kind),
				"target":   lua.LString(L.CheckString(1)),
				"required": lua.LNumber(L.OptInt(2, 1)),
			}))
			return 1
		}))
	}
}

func makeTable(L *lua.LState, fields map[string]lua.LValue) *lua.LTable {
	tbl := L.NewTable()
	for k, v := range fields {
		tbl.RawSetString(k, v)
	}
	return tbl
}
