package rng

import (
	"math"
	"testing"
)

func TestSameSeedSameSamples(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		x, y := a.Uniform(), b.Uniform()
		if x != y {
			t.Fatalf("sample %d differs: %v != %v", i, x, y)
		}
	}
}

func TestUniformRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		u := s.Uniform()
		if u < 0 || u >= 1 {
			t.Fatalf("Uniform() = %v, want [0,1)", u)
		}
	}
}

func TestZeroSpreadCollapses(t *testing.T) {
	for _, seed := range []uint64{0, 1, 99, math.MaxUint64} {
		s := New(seed)
		if got := s.UniformSpread(0.5, 0); got != 0.5 {
			t.Errorf("seed %d: UniformSpread(0.5, 0) = %v, want 0.5", seed, got)
		}
		if got := s.GaussianSpread(-2, 0); got != -2 {
			t.Errorf("seed %d: GaussianSpread(-2, 0) = %v, want -2", seed, got)
		}
	}
}

func TestUniformSpreadBounds(t *testing.T) {
	s := New(3)
	lo, hi := 10-2*math.Sqrt(3), 10+2*math.Sqrt(3)
	for i := 0; i < 1000; i++ {
		v := s.UniformSpread(10, 2)
		if v < lo || v > hi {
			t.Fatalf("UniformSpread(10, 2) = %v outside [%v, %v]", v, lo, hi)
		}
	}
}

func TestDeriveIndependentOfDraws(t *testing.T) {
	s := New(11)
	before := s.Derive(3)
	for i := 0; i < 10; i++ {
		s.Uniform()
	}
	if after := s.Derive(3); after != before {
		t.Errorf("Derive changed after sampling: %d != %d", after, before)
	}
}

func TestDeriveSiblingsDistinct(t *testing.T) {
	s := New(5)
	seen := make(map[uint64]uint64)
	for port := 0; port < 4; port++ {
		for pos := 0; pos < 16; pos++ {
			stream := Stream(port, pos)
			seed := s.Derive(stream)
			if prev, ok := seen[seed]; ok {
				t.Fatalf("streams %d and %d derived the same seed", prev, stream)
			}
			seen[seed] = stream
		}
	}
}

func TestStreamPacking(t *testing.T) {
	if Stream(0, 1) == Stream(1, 0) {
		t.Error("Stream(0,1) should differ from Stream(1,0)")
	}
	if got := Stream(2, 3); got != 2<<32|3 {
		t.Errorf("Stream(2,3) = %d", got)
	}
}

func TestChildMatchesDerive(t *testing.T) {
	s := New(8)
	c := s.Child(4)
	if c.Seed() != s.Derive(4) {
		t.Errorf("Child seed %d != Derive %d", c.Seed(), s.Derive(4))
	}
}
