// Package engine holds the deterministic random source shared by the
// simulation packages. Combat, loot, and spawn rolls all draw from an
// injected Random so tests and save/restore can reproduce them exactly.
package engine

import "math/rand"

// Random is the random source consumed by combat and loot rolls.
type Random interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Range returns an integer in [min, max].
	Range(min, max int) int
	// Chance reports true with probability p, drawing once.
	Chance(p float64) bool
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Every draw consumes exactly one value from the source, so Position
// is enough to restore the exact stream.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

func (r *RNG) next() int64 {
	r.pos++
	return r.src.Int63()
}

// Roll returns a random integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	if sides <= 1 {
		r.next()
		return 1
	}
	return int(r.next()%int64(sides)) + 1
}

// Range returns a random integer in [min, max]. Swapped bounds are
// normalized.
func (r *RNG) Range(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + r.Roll(max-min+1) - 1
}

// Float64 returns a random float in [0, 1).
func (r *RNG) Float64() float64 {
	return float64(r.next()>>10) / (1 << 53)
}

// Chance returns true with probability p.
func (r *RNG) Chance(p float64) bool {
	return r.Float64() < p
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position.
// This reproduces the exact RNG state for save/load.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}
