package world

import (
	"hash/fnv"

	"github.com/nathoo/wayfarer/types"
)

type cacheKey struct {
	revision uint64
	current  string
	exits    uint64
}

// Cache memoizes the last BuildGraph result. The caller supplies a registry
// revision that changes whenever the registry does; together with the
// current location and its exits it fully determines the graph.
type Cache struct {
	cfg   Config
	key   cacheKey
	graph Graph
	valid bool

	Hits, Misses int
}

// NewCache creates an empty cache.
func NewCache(cfg Config) *Cache {
	return &Cache{cfg: cfg}
}

// Graph returns the memoized graph, rebuilding it when the key changed.
func (c *Cache) Graph(revision uint64, currentID string, registry map[string]types.LocationRecord, currentExits []types.Exit) Graph {
	key := cacheKey{revision: revision, current: currentID, exits: HashExits(currentExits)}
	if c.valid && c.key == key {
		c.Hits++
		return c.graph
	}
	c.Misses++
	c.graph = c.cfg.BuildGraph(currentID, registry, currentExits)
	c.key = key
	c.valid = true
	return c.graph
}

// Invalidate forces the next call to rebuild.
func (c *Cache) Invalidate() {
	c.valid = false
}

// HashExits fingerprints an exit list, order included.
func HashExits(exits []types.Exit) uint64 {
	h := fnv.New64a()
	for _, e := range exits {
		h.Write([]byte(e.Direction))
		h.Write([]byte{0})
		h.Write([]byte(e.TargetID))
		h.Write([]byte{0})
		h.Write([]byte(e.Label))
		h.Write([]byte{0})
		h.Write([]byte(e.Command))
		h.Write([]byte{1})
	}
	return h.Sum64()
}
