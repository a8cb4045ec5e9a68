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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Sentinel fills the last batches when batch padding is disabled.  It never
// reaches the consumer; the sampler filters it out when yielding a batch.
const Sentinel = -1

// Plan is the global batch layout of a single epoch.  Every rank that
// computes the plan of the same epoch with the same synchronized seed holds an
// identical plan and keeps a different contiguous shard of it.
type Plan struct {
	epoch     int64
	worldSize int
	batches   [][]int
}

// Plan draws the batch layout of the given epoch.  The data samples are
// permuted and padded (per bucket when grouping by aspect ratio), grouped into
// local batches, and then the batch order is permuted with the same permuter.
func (s *Schedule) Plan(epoch int64, permuter Permuter) *Plan {
	indices := make([]int, 0, s.numBatches*s.wholeBatchSize)

	if s.Bucketed() {
		for bucket, members := range s.members {
			if len(members) == 0 {
				continue
			}
			base := len(indices)
			indices = append(indices, members...)
			permute(permuter, indices[base:])
			indices = pad(indices, base, s.padLengths[bucket])
		}
	} else {
		for len(indices) < s.length {
			indices = append(indices, len(indices))
		}
		permute(permuter, indices)
		if s.config.PadBatch {
			indices = pad(indices, 0, s.numBatches*s.wholeBatchSize-s.length)
		} else {
			for len(indices) < s.numBatches*s.wholeBatchSize {
				indices = append(indices, Sentinel)
			}
		}
	}

	// group by local batch so that each batch is drawn from a single bucket
	batchSize := s.config.BatchSize
	batches := make([][]int, 0, len(indices)/batchSize)
	for base := 0; base < len(indices); base += batchSize {
		batches = append(batches, indices[base:base+batchSize:base+batchSize])
	}

	// shuffle between batches, never within
	permuter.Shuffle(len(batches), func(i, j int) {
		batches[i], batches[j] = batches[j], batches[i]
	})

	return &Plan{
		epoch:     epoch,
		worldSize: s.config.WorldSize,
		batches:   batches,
	}
}

// pad appends length indices taken from the front of indices[base:].  The
// indices wrap around when length exceeds the available ones, so the padded
// sequence is a prefix of the repeated sequence.
func pad(indices []int, base, length int) []int {
	for offset := 0; offset < length; offset++ {
		indices = append(indices, indices[base+offset])
	}
	return indices
}

// Epoch returns the epoch of the plan.
func (p *Plan) Epoch() int64 {
	return p.epoch
}

// Len returns the number of local batches across all ranks.
func (p *Plan) Len() int {
	return len(p.batches)
}

// Batches returns the global sequence of local batches.  The result must not
// be modified.
func (p *Plan) Batches() [][]int {
	return p.batches
}

// Shard returns the contiguous group of batches assigned to the given rank.
// The result must not be modified.
func (p *Plan) Shard(rank int) [][]int {
	steps := len(p.batches) / p.worldSize
	return p.batches[rank*steps : (rank+1)*steps : (rank+1)*steps]
}

// Fingerprint returns a digest of the global batch layout.  Ranks can compare
// fingerprints to confirm that they agree on the layout of an epoch.
func (p *Plan) Fingerprint() uint64 {
	digest := xxhash.New()
	buf := make([]byte, 8)
	for _, batch := range p.batches {
		for _, index := range batch {
			binary.LittleEndian.PutUint64(buf, uint64(index))
			digest.Write(buf)
		}
	}
	return digest.Sum64()
}
