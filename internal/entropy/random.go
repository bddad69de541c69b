// Package entropy provides the deterministic random stream the scheduler
// feeds to every stochastic subsystem. All randomness flows through one
// seeded Source so two runs from the same seed replay identically; nothing
// in the engine may fall back to the host clock or allocation addresses.
package entropy

import "github.com/talgya/grandsim/internal/fixed"

// Source is a splitmix64 generator. Not safe for concurrent use; the
// scheduler owns it and hands it down through tick contexts.
type Source struct {
	state uint64
}

// NewSource creates a generator from a seed. The same seed always yields the
// same stream.
func NewSource(seed uint64) *Source {
	return &Source{state: seed}
}

// Uint64 returns the next value of the stream.
func (s *Source) Uint64() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Uint32 returns the next value truncated to 32 bits.
func (s *Source) Uint32() uint32 {
	return uint32(s.Uint64() >> 32)
}

// Intn returns a value in [0, n). n must be positive.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint64() % uint64(n))
}

// Point returns a fixed-point value in [0, 1).
func (s *Source) Point() fixed.Point {
	return fixed.Point(s.Uint64() & uint64(fixed.One-1))
}

// PointRange returns a fixed-point value in [0, max).
func (s *Source) PointRange(max fixed.Point) fixed.Point {
	if max <= 0 {
		return 0
	}
	return s.Point().Mul(max)
}

// Chance rolls against a probability in [0, 1] and reports success.
func (s *Source) Chance(p fixed.Point) bool {
	if p <= 0 {
		return false
	}
	if p >= fixed.One {
		return true
	}
	return s.Point() < p
}

// Fork derives an independent generator from the stream, for subsystems that
// need their own sequence without disturbing the parent's.
func (s *Source) Fork() *Source {
	return NewSource(s.Uint64())
}
