package game

import "testing"

func TestRNGAdvances(t *testing.T) {
	rng := NewRNG(1)
	first := rng.Next()
	second := rng.Next()
	if first != 48271 {
		t.Errorf("first draw = %d, want 48271", first)
	}
	if second != 182605794 {
		t.Errorf("second draw = %d, want 182605794", second)
	}
	if first == second {
		t.Error("generator did not advance between draws")
	}
}

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(12345)
	b := NewRNG(12345)
	for i := 0; i < 100; i++ {
		if av, bv := a.Next(), b.Next(); av != bv {
			t.Fatalf("draw %d: %d != %d", i, av, bv)
		}
	}
}

func TestRNGZeroSeed(t *testing.T) {
	rng := NewRNG(0)
	for i := 0; i < 3; i++ {
		if v := rng.Next(); v != 0 {
			t.Fatalf("zero seed draw %d = %d, want 0", i, v)
		}
	}
}
