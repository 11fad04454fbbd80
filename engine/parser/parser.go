// Package parser converts command strings into Intent structs.
// No NLP, just pattern matching; anything it doesn't recognize is handed
// to the narrative service as free text.
package parser

import (
	"strings"

	"github.com/nathoo/wayfarer/types"
)

var directionExpansions = map[string]string{
	"n":  "north",
	"s":  "south",
	"e":  "east",
	"w":  "west",
	"ne": "northeast",
	"nw": "northwest",
	"se": "southeast",
	"sw": "southwest",
	"u":  "up",
	"d":  "down",
}

var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
	"up": true, "down": true,
}

var verbAliases = map[string]string{
	"l":       "look",
	"x":       "look",
	"examine": "look",

	"walk":   "go",
	"run":    "go",
	"move":   "go",
	"head":   "go",
	"travel": "go",
	"enter":  "go",

	"search": "explore",
	"scout":  "explore",

	"get":  "take",
	"grab": "take",
	"loot": "take",

	"discard": "drop",

	"hit":    "attack",
	"fight":  "attack",
	"strike": "attack",
	"kill":   "attack",

	"cast":  "skill",
	"spell": "skill",

	"block": "defend",
	"guard": "defend",

	"capture": "contract",
	"tame":    "contract",
	"bind":    "contract",

	"flee":    "escape",
	"retreat": "escape",

	"ask":   "talk",
	"speak": "talk",
	"chat":  "talk",
	"greet": "talk",

	"drink": "use",
	"quaff": "use",
	"eat":   "use",

	"wear":  "equip",
	"wield": "equip",

	"inv": "inventory",
	"i":   "inventory",

	"status": "stats",
	"me":     "stats",

	"journal": "quests",
	"q":       "quests",

	"m": "map",

	"z":    "wait",
	"rest": "wait",
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "from": true,
	"about": true,
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command string into an Intent.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Bare "n", "south", etc. → go <direction>
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return types.Intent{Verb: "go", Object: dir}
		}
		if directionNames[words[0]] {
			return types.Intent{Verb: "go", Object: words[0]}
		}
	}

	words = expandMultiWordVerbs(words)

	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	// "go n" expands the direction too.
	if verb == "go" && len(rest) == 1 {
		if dir, ok := directionExpansions[rest[0]]; ok {
			rest[0] = dir
		}
	}

	object, target := splitOnPreposition(rest)
	return types.Intent{
		Verb:   verb,
		Object: object,
		Target: target,
	}
}

// expandMultiWordVerbs handles "look at", "pick up", "turn in" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "look":
		if words[1] == "at" || words[1] == "around" {
			return append([]string{"look"}, words[2:]...)
		}
	case "pick":
		if words[1] == "up" {
			return append([]string{"take"}, words[2:]...)
		}
	case "talk", "speak", "chat":
		if words[1] == "to" || words[1] == "with" {
			return append([]string{"talk"}, words[2:]...)
		}
	case "put":
		if words[1] == "on" {
			return append([]string{"equip"}, words[2:]...)
		}
		if words[1] == "down" {
			return append([]string{"drop"}, words[2:]...)
		}
	case "take":
		if words[1] == "off" {
			return append([]string{"unequip"}, words[2:]...)
		}
	case "turn", "hand":
		if words[1] == "in" {
			return append([]string{"turnin"}, words[2:]...)
		}
	case "run":
		if words[1] == "away" {
			return append([]string{"escape"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, target string) {
	for i, w := range words {
		if prepositions[w] {
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, target
		}
	}
	return strings.Join(words, " "), ""
}
