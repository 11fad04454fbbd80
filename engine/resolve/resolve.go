// Package resolve maps names typed by the player to entity handles and
// inventory item IDs.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/wayfarer/types"
)

// AmbiguityError indicates multiple candidates matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates nothing matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you don't see %q here", e.Name)
}

// Entity picks the entity called name. An exact name or template ID match
// wins over a partial word match; several equally good matches are
// ambiguous unless they share a template, in which case the lowest handle
// is taken.
func Entity(entities []types.Entity, name string) (types.Entity, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	var exact, partial []types.Entity
	for _, e := range entities {
		switch matchLevel(e.Name, e.TemplateID, nameLower) {
		case 2:
			exact = append(exact, e)
		case 1:
			partial = append(partial, e)
		}
	}
	matches := exact
	if len(matches) == 0 {
		matches = partial
	}

	switch {
	case len(matches) == 0:
		return types.Entity{}, &NotFoundError{Name: name}
	case sameTemplate(matches):
		return lowestHandle(matches), nil
	}
	var names []string
	seen := map[string]bool{}
	for _, e := range matches {
		if !seen[e.Name] {
			names = append(names, e.Name)
			seen[e.Name] = true
		}
	}
	return types.Entity{}, &AmbiguityError{Name: name, Candidates: names}
}

// Item picks an inventory record by name or ID.
func Item(inventory []types.Item, name string) (types.Item, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	var exact, partial []types.Item
	for _, it := range inventory {
		switch matchLevel(it.Name, it.ID, nameLower) {
		case 2:
			exact = append(exact, it)
		case 1:
			partial = append(partial, it)
		}
	}
	matches := exact
	if len(matches) == 0 {
		matches = partial
	}
	switch len(matches) {
	case 0:
		return types.Item{}, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, it := range matches {
		names[i] = it.Name
	}
	return types.Item{}, &AmbiguityError{Name: name, Candidates: names}
}

// matchLevel returns 2 for an exact name or ID match, 1 when the query
// matches a single word of the name, and 0 otherwise.
func matchLevel(displayName, id, nameLower string) int {
	if nameLower == "" {
		return 0
	}
	entityNameLower := strings.ToLower(displayName)
	idLower := strings.ToLower(id)
	if entityNameLower == nameLower || idLower == nameLower {
		return 2
	}
	// Underscore normalization: "rusty key" matches ID "rusty_key".
	if strings.ReplaceAll(nameLower, " ", "_") == idLower {
		return 2
	}
	// Word-based partial match: "slime" matches "green slime".
	for _, word := range strings.Fields(entityNameLower) {
		if word == nameLower {
			return 1
		}
	}
	return 0
}

func sameTemplate(es []types.Entity) bool {
	for _, e := range es[1:] {
		if e.TemplateID != es[0].TemplateID {
			return false
		}
	}
	return true
}

func lowestHandle(es []types.Entity) types.Entity {
	best := es[0]
	for _, e := range es[1:] {
		if e.Handle < best.Handle {
			best = e
		}
	}
	return best
}
