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

package sampler

import (
	"math/rand"

	"github.com/9rum/detfeed/internal/mt19937"
)

// Permuter draws the permutations of a single epoch.  A permuter is consumed
// in a fixed order: the data samples of each non-empty bucket in ascending
// bucket order (or of the whole dataset), then the batch order.
type Permuter interface {
	// Shuffle pseudo-randomizes the order of n elements.  swap swaps the
	// elements with indexes i and j.
	Shuffle(n int, swap func(i, j int))
}

// identity keeps the original order.
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

// entropy draws from the process-local random source, which differs between
// processes and between runs.
type entropy struct{}

func (entropy) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// NewPermuter returns the permuter for the given epoch.
func NewPermuter(config Config, epoch int64) Permuter {
	switch {
	case !config.Shuffle:
		return identity{}
	case config.SyncSeedSchedule:
		return mt19937.New(Seed(config.InitSeed, epoch))
	default:
		return entropy{}
	}
}

// Seed returns the generator seed of the given epoch.  The sum is reduced
// modulo 2^32.
func Seed(initSeed, epoch int64) uint32 {
	return uint32(initSeed + epoch)
}

// permute shuffles the given indices in place.
func permute(permuter Permuter, indices []int) {
	permuter.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}
