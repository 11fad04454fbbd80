package registry

import (
	"fmt"
	"sort"

	"github.com/nathoo/wayfarer/types"
)

// Arena owns the active entity set. Handles are handed out from a
// monotonically increasing counter and are never reused, even after the
// entity is removed.
type Arena struct {
	next types.Handle
	live map[types.Handle]types.Entity
}

// NewArena creates an empty arena. The first handle issued is 1.
func NewArena() *Arena {
	return &Arena{
		next: 1,
		live: map[types.Handle]types.Entity{},
	}
}

// Allocate reserves a fresh handle without spawning anything. Pets use
// this so their IDs share the entity handle space.
func (a *Arena) Allocate() types.Handle {
	h := a.next
	a.next++
	return h
}

// Spawn instantiates a template at a location and returns the instance.
func (a *Arena) Spawn(tpl types.Entity, location string) types.Entity {
	e := CloneEntity(tpl)
	e.Handle = a.Allocate()
	e.Location = location
	if e.HP == 0 {
		e.HP = e.MaxHP
	}
	a.live[e.Handle] = e
	return CloneEntity(e)
}

// Get returns a copy of a live entity.
func (a *Arena) Get(h types.Handle) (types.Entity, bool) {
	e, ok := a.live[h]
	if !ok {
		return types.Entity{}, false
	}
	return CloneEntity(e), true
}

// Put replaces a live entity's record. It fails for unknown handles so a
// removed handle can never be revived.
func (a *Arena) Put(e types.Entity) bool {
	if _, ok := a.live[e.Handle]; !ok {
		return false
	}
	a.live[e.Handle] = CloneEntity(e)
	return true
}

// Remove deletes an entity. Returns false if it was not live.
func (a *Arena) Remove(h types.Handle) bool {
	if _, ok := a.live[h]; !ok {
		return false
	}
	delete(a.live, h)
	return true
}

// At returns the live entities at a location, ordered by handle.
func (a *Arena) At(location string) []types.Entity {
	var out []types.Entity
	for _, e := range a.All() {
		if e.Location == location {
			out = append(out, e)
		}
	}
	return out
}

// All returns every live entity ordered by handle.
func (a *Arena) All() []types.Entity {
	handles := make([]types.Handle, 0, len(a.live))
	for h := range a.live {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	out := make([]types.Entity, 0, len(handles))
	for _, h := range handles {
		out = append(out, CloneEntity(a.live[h]))
	}
	return out
}

// Len returns the number of live entities.
func (a *Arena) Len() int {
	return len(a.live)
}

// NextHandle returns the next handle that would be issued.
func (a *Arena) NextHandle() types.Handle {
	return a.next
}

// Clone returns an independent copy of the arena.
func (a *Arena) Clone() *Arena {
	c := &Arena{next: a.next, live: make(map[types.Handle]types.Entity, len(a.live))}
	for h, e := range a.live {
		c.live[h] = CloneEntity(e)
	}
	return c
}

// RestoreArena rebuilds an arena from saved entities. next is raised past
// every restored handle so no handle is issued twice.
func RestoreArena(entities []types.Entity, next types.Handle) (*Arena, error) {
	a := NewArena()
	for _, e := range entities {
		if e.Handle == 0 {
			return nil, fmt.Errorf("entity %q has zero handle", e.TemplateID)
		}
		if _, dup := a.live[e.Handle]; dup {
			return nil, fmt.Errorf("duplicate entity handle %d", e.Handle)
		}
		a.live[e.Handle] = CloneEntity(e)
		if e.Handle >= a.next {
			a.next = e.Handle + 1
		}
	}
	if next > a.next {
		a.next = next
	}
	return a, nil
}
