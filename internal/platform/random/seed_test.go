package random

import "testing"

func TestNewSeedVaries(t *testing.T) {
	hi1, lo1, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	hi2, lo2, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	if hi1 == hi2 && lo1 == lo2 {
		t.Fatal("expected two seeds to differ")
	}
}

func TestNewDeterministicRepeats(t *testing.T) {
	a := NewDeterministic(42)
	b := NewDeterministic(42)
	for i := 0; i < 16; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("draw %d = %d, want %d", i, y, x)
		}
	}
}

func TestNewRand(t *testing.T) {
	rng, err := NewRand()
	if err != nil {
		t.Fatalf("new rand: %v", err)
	}
	if v := rng.IntN(10); v < 0 || v >= 10 {
		t.Fatalf("IntN(10) = %d, want [0,10)", v)
	}
}
