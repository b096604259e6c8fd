// Package rng provides the deterministic, splittable random source used by
// graph evaluation. A Sequence is created from a 64-bit seed; child seeds for
// sibling branches are derived from the seed and a stream number so that the
// result does not depend on the order in which siblings are visited.
package rng

import (
	"math"
	"math/rand/v2"
)

// golden is the SplitMix64 increment (2^64 / phi).
const golden = 0x9e3779b97f4a7c15

// Sequence is a seeded pseudo-random source. It is not safe for concurrent use.
type Sequence struct {
	seed uint64
	r    *rand.Rand
}

// New returns a Sequence seeded with seed. Two sequences with the same seed
// produce the same samples.
func New(seed uint64) *Sequence {
	return &Sequence{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, mix(seed^golden))),
	}
}

// Seed returns the seed the sequence was created with.
func (s *Sequence) Seed() uint64 {
	return s.seed
}

// Uniform returns a sample in [0, 1).
func (s *Sequence) Uniform() float64 {
	return s.r.Float64()
}

// Gaussian returns a standard normal sample (mean 0, standard deviation 1).
func (s *Sequence) Gaussian() float64 {
	return s.r.NormFloat64()
}

// UniformSpread returns a uniform sample with the given mean and standard
// deviation. A zero deviation returns mean exactly.
func (s *Sequence) UniformSpread(mean, stdDev float64) float64 {
	u := s.Uniform()
	if stdDev == 0 {
		return mean
	}
	return mean + stdDev*math.Sqrt(3)*(2*u-1)
}

// GaussianSpread returns a normal sample with the given mean and standard
// deviation. A zero deviation returns mean exactly.
func (s *Sequence) GaussianSpread(mean, stdDev float64) float64 {
	n := s.Gaussian()
	if stdDev == 0 {
		return mean
	}
	return mean + stdDev*n
}

// Derive returns the seed for child stream. It depends only on the sequence's
// seed and stream, never on how many samples have been drawn.
func (s *Sequence) Derive(stream uint64) uint64 {
	return Derive(s.seed, stream)
}

// Child returns a new Sequence seeded with Derive(stream).
func (s *Sequence) Child(stream uint64) *Sequence {
	return New(s.Derive(stream))
}

// Derive mixes a parent seed and a stream identifier into a new seed using a
// SplitMix64 finalizer.
func Derive(parent, stream uint64) uint64 {
	return mix(parent ^ (stream + golden) + golden)
}

// Stream packs an input port and a producer position into a stream number.
func Stream(port, position int) uint64 {
	return uint64(uint32(port))<<32 | uint64(uint32(position))
}

func mix(x uint64) uint64 {
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
