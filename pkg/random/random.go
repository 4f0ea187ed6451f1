// Package random wraps math/rand/v2 behind a mutex so one seeded source can
// be shared by timer callbacks.
package random

import (
	"math/rand/v2"
	"sync"
	"time"
)

type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a source seeded with seed. A zero seed uses the wall clock.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Source{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 is uniform in [0,1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Uniform is uniform in [lo,hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// Chance reports true with probability p.
func (s *Source) Chance(p float64) bool {
	return s.Float64() < p
}

// IntN is uniform in [0,n).
func (s *Source) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Int64N is uniform in [0,n).
func (s *Source) Int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(n)
}

// Fork derives an independent source, so simulators do not share a stream.
func (s *Source) Fork() *Source {
	s.mu.Lock()
	a, b := s.rng.Uint64(), s.rng.Uint64()
	s.mu.Unlock()
	return &Source{rng: rand.New(rand.NewPCG(a, b))}
}
