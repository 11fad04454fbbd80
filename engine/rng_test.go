package engine

import "testing"

func TestRNG_Deterministic(t *testing.T) {
	rng1 := NewRNG(42)
	rng2 := NewRNG(42)

	for i := 0; i < 20; i++ {
		a := rng1.Roll(6)
		b := rng2.Roll(6)
		if a != b {
			t.Fatalf("roll %d: got %d and %d from same seed", i, a, b)
		}
	}
}

func TestRNG_Roll_Range(t *testing.T) {
	rng := NewRNG(99)

	for i := 0; i < 1000; i++ {
		r := rng.Roll(6)
		if r < 1 || r > 6 {
			t.Fatalf("roll out of range [1,6]: got %d", r)
		}
	}
}

func TestRNG_Roll_OneSided(t *testing.T) {
	rng := NewRNG(1)

	for i := 0; i < 10; i++ {
		if r := rng.Roll(1); r != 1 {
			t.Fatalf("1-sided die should always be 1, got %d", r)
		}
	}
}

func TestRNG_Position_Tracks(t *testing.T) {
	rng := NewRNG(42)

	if rng.Position() != 0 {
		t.Fatalf("expected position 0, got %d", rng.Position())
	}

	rng.Roll(6)
	if rng.Position() != 1 {
		t.Fatalf("expected position 1, got %d", rng.Position())
	}

	rng.Chance(0.5)
	if rng.Position() != 2 {
		t.Fatalf("expected position 2, got %d", rng.Position())
	}

	rng.Roll(20)
	rng.Roll(20)
	if rng.Position() != 4 {
		t.Fatalf("expected position 4, got %d", rng.Position())
	}
}

func TestRNG_Restore_MatchesPosition(t *testing.T) {
	// Advance an RNG to position 10 and record the next 5 rolls.
	rng := NewRNG(42)
	for i := 0; i < 10; i++ {
		rng.Roll(6)
	}

	var expected [5]int
	for i := range expected {
		expected[i] = rng.Roll(6)
	}

	// Restore to position 10 and verify same rolls.
	restored := RestoreRNG(42, 10)
	if restored.Position() != 10 {
		t.Fatalf("expected position 10, got %d", restored.Position())
	}

	for i, want := range expected {
		got := restored.Roll(6)
		if got != want {
			t.Fatalf("roll %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestRNG_DifferentSeeds_DifferentResults(t *testing.T) {
	rng1 := NewRNG(1)
	rng2 := NewRNG(2)

	// With different seeds, at least some rolls should differ.
	differs := false
	for i := 0; i < 20; i++ {
		if rng1.Roll(100) != rng2.Roll(100) {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("expected different seeds to produce different results")
	}
}

func TestRNG_Range_Bounds(t *testing.T) {
	rng := NewRNG(7)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := rng.Range(2, 5)
		if v < 2 || v > 5 {
			t.Fatalf("Range(2,5) out of bounds: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != 4 {
		t.Errorf("expected all 4 values to appear, saw %v", seen)
	}
}

func TestRNG_Range_SwappedBounds(t *testing.T) {
	rng := NewRNG(7)
	for i := 0; i < 100; i++ {
		if v := rng.Range(5, 2); v < 2 || v > 5 {
			t.Fatalf("Range(5,2) out of bounds: %d", v)
		}
	}
}

func TestRNG_Float64_Range(t *testing.T) {
	rng := NewRNG(3)
	sum := 0.0
	const trials = 10000
	for i := 0; i < trials; i++ {
		f := rng.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of [0,1): %f", f)
		}
		sum += f
	}
	if mean := sum / trials; mean < 0.45 || mean > 0.55 {
		t.Errorf("expected mean near 0.5, got %f", mean)
	}
}

func TestRNG_Chance_Distribution(t *testing.T) {
	rng := NewRNG(11)
	hits := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		if rng.Chance(0.6) {
			hits++
		}
	}
	if hits < 5700 || hits > 6300 {
		t.Errorf("expected ~6000 hits for p=0.6, got %d", hits)
	}
}

func TestRNG_Restore_MixedDraws(t *testing.T) {
	rng := NewRNG(42)
	rng.Float64()
	rng.Range(1, 10)
	rng.Chance(0.3)
	rng.Chance(0.5)

	want := rng.Float64()
	restored := RestoreRNG(42, 4)
	if got := restored.Float64(); got != want {
		t.Fatalf("restored stream diverged: got %f, want %f", got, want)
	}
}
