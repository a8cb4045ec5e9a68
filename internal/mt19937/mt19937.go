// Copyright 2022 Sogang University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mt19937 implements the 32-bit Mersenne Twister together with the
// bounded-integer and shuffle primitives built on top of it.  Given the same
// seed, the stream produced here is bit-identical to the one used by NumPy's
// legacy RandomState, so processes written in other languages can derive the
// same permutations without any communication.
package mt19937

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff
)

// Source is a Mersenne Twister generator.  A Source is not safe for
// concurrent use.
type Source struct {
	state [n]uint32
	pos   int
}

// New creates a new generator seeded with the given value.
func New(seed uint32) *Source {
	src := new(Source)
	src.Seed(seed)
	return src
}

// Seed initializes the generator state with the given value.
func (s *Source) Seed(seed uint32) {
	s.state[0] = seed
	for i := 1; i < n; i++ {
		prev := s.state[i-1]
		s.state[i] = 1812433253*(prev^(prev>>30)) + uint32(i)
	}
	s.pos = n
}

// twist regenerates the whole state block.
func (s *Source) twist() {
	for k := 0; k < n; k++ {
		y := s.state[k]&upperMask | s.state[(k+1)%n]&lowerMask
		next := s.state[(k+m)%n] ^ y>>1
		if y&1 == 1 {
			next ^= matrixA
		}
		s.state[k] = next
	}
	s.pos = 0
}

// Uint32 returns the next tempered 32-bit output.
func (s *Source) Uint32() uint32 {
	if n <= s.pos {
		s.twist()
	}
	y := s.state[s.pos]
	s.pos++

	y ^= y >> 11
	y ^= y << 7 & 0x9d2c5680
	y ^= y << 15 & 0xefc60000
	y ^= y >> 18
	return y
}

// Uint64 returns a 64-bit value composed of two consecutive outputs, the first
// one forming the high word.
func (s *Source) Uint64() uint64 {
	hi := uint64(s.Uint32())
	return hi<<32 | uint64(s.Uint32())
}

// Interval returns a uniformly distributed value in [0, max].  It masks the
// output to the smallest covering power of two and rejects values above max.
func (s *Source) Interval(max uint64) uint64 {
	if max == 0 {
		return 0
	}
	mask := max
	mask |= mask >> 1
	mask |= mask >> 2
	mask |= mask >> 4
	mask |= mask >> 8
	mask |= mask >> 16
	mask |= mask >> 32

	if max <= 0xffffffff {
		for {
			if value := uint64(s.Uint32()) & mask; value <= max {
				return value
			}
		}
	}
	for {
		if value := s.Uint64() & mask; value <= max {
			return value
		}
	}
}

// Shuffle pseudo-randomizes the order of length elements, walking from the last
// element down to the second one.  swap swaps the elements with indexes i and j.
func (s *Source) Shuffle(length int, swap func(i, j int)) {
	for i := length - 1; 0 < i; i-- {
		swap(i, int(s.Interval(uint64(i))))
	}
}
