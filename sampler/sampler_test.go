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
	"errors"
	"io"
	"sort"
	"testing"

	"github.com/9rum/detfeed/internal/data"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// drain consumes the remaining batches of the current epoch.
func drain(t testing.TB, sampler *Sampler) (batches [][]int) {
	for {
		indices, err := sampler.Next()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatal(err)
		}
		batches = append(batches, indices)
	}
}

func newSampler(t testing.TB, config Config, dataset data.Dataset) *Sampler {
	sampler, err := New(config, dataset)
	if err != nil {
		t.Fatal(err)
	}
	return sampler
}

func TestSamplerSequential(t *testing.T) {
	for _, tc := range []struct {
		name        string
		datasetSize int
		padBatch    bool
		want        [][]int
	}{
		{"exact", 10, true, [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}}},
		{"padded", 7, true, [][]int{{0, 1}, {2, 3}, {4, 5}, {6, 0}}},
		{"partial", 7, false, [][]int{{0, 1}, {2, 3}, {4, 5}, {6}}},
	} {
		config := DefaultConfig()
		config.BatchSize = 2
		config.Shuffle = false
		config.PadBatch = tc.padBatch

		sampler := newSampler(t, config, data.Range(tc.datasetSize))
		if got := sampler.Len(); got != len(tc.want) {
			t.Fatalf("%s: got %d batches want %d", tc.name, got, len(tc.want))
		}
		if diff := cmp.Diff(tc.want, drain(t, sampler)); diff != "" {
			t.Fatalf("%s: batches mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestSamplerRanks(t *testing.T) {
	const (
		datasetSize = 6
		worldSize   = 2
	)
	want := [][][]int{
		{{0}, {1}, {2}},
		{{3}, {4}, {5}},
	}

	for rank := 0; rank < worldSize; rank++ {
		config := DefaultConfig()
		config.Shuffle = false
		config.Rank = rank
		config.WorldSize = worldSize

		sampler := newSampler(t, config, data.Range(datasetSize))
		if diff := cmp.Diff(want[rank], drain(t, sampler)); diff != "" {
			t.Fatalf("rank %d: batches mismatch (-want +got):\n%s", rank, diff)
		}
	}
}

// The expected layouts below are drawn from MT19937 seeded with init_seed + epoch.
func TestSamplerSynchronized(t *testing.T) {
	const (
		datasetSize = 10
		worldSize   = 2
	)
	want := [][][][]int{
		{
			{{1, 7}, {2, 9}, {6, 4}},
			{{0, 3}, {8, 5}, {2, 9}},
		},
		{
			{{5, 0}, {9, 8}, {4, 1}},
			{{4, 1}, {7, 2}, {3, 6}},
		},
	}

	for rank := 0; rank < worldSize; rank++ {
		config := DefaultConfig()
		config.BatchSize = 2
		config.Rank = rank
		config.WorldSize = worldSize

		sampler := newSampler(t, config, data.Range(datasetSize))
		for epoch := range want {
			if epoch != 0 {
				sampler.AdvanceEpoch()
			}
			if got := sampler.Epoch(); got != int64(epoch) {
				t.Fatalf("rank %d: got epoch %d want %d", rank, got, epoch)
			}
			if diff := cmp.Diff(want[epoch][rank], drain(t, sampler)); diff != "" {
				t.Fatalf("rank %d epoch %d: batches mismatch (-want +got):\n%s", rank, epoch, diff)
			}
		}
	}

	config := DefaultConfig()
	config.BatchSize = 2
	config.InitSeed = 3
	sampler := newSampler(t, config, data.Range(7))
	if diff := cmp.Diff([][]int{{2, 4}, {1, 0}, {5, 3}, {4, 6}}, drain(t, sampler)); diff != "" {
		t.Fatalf("batches mismatch (-want +got):\n%s", diff)
	}
}

func TestSamplerSentinel(t *testing.T) {
	const (
		datasetSize = 5
		worldSize   = 2
	)
	want := [][][]int{
		{{2, 1}, {3}},
		{{}, {4, 0}},
	}

	for rank := 0; rank < worldSize; rank++ {
		config := DefaultConfig()
		config.BatchSize = 2
		config.PadBatch = false
		config.Rank = rank
		config.WorldSize = worldSize

		sampler := newSampler(t, config, data.Range(datasetSize))
		got := drain(t, sampler)
		if diff := cmp.Diff(want[rank], got); diff != "" {
			t.Fatalf("rank %d: batches mismatch (-want +got):\n%s", rank, diff)
		}
		for _, batch := range got {
			for _, index := range batch {
				if index == Sentinel {
					t.Fatalf("rank %d: sentinel leaked into %v", rank, batch)
				}
			}
		}
	}
}

func TestSamplerBuckets(t *testing.T) {
	for _, tc := range []struct {
		name      string
		shuffle   bool
		worldSize int
		want      [][][]int
	}{
		{"sequential", false, 1, [][][]int{{{0, 2}, {5, 7}, {1, 3}, {4, 6}}}},
		{"shuffled", true, 1, [][][]int{{{3, 6}, {1, 4}, {7, 5}, {0, 2}}}},
		{"distributed", true, 2, [][][]int{{{3, 6}, {1, 4}}, {{7, 5}, {0, 2}}}},
	} {
		for rank := 0; rank < tc.worldSize; rank++ {
			config := DefaultConfig()
			config.BatchSize = 2
			config.Shuffle = tc.shuffle
			config.AspectRatioThresholds = []float64{1.}
			config.Rank = rank
			config.WorldSize = tc.worldSize

			sampler := newSampler(t, config, data.NewAspectRatioDataset(ratios))
			got := drain(t, sampler)
			if diff := cmp.Diff(tc.want[rank], got); diff != "" {
				t.Fatalf("%s rank %d: batches mismatch (-want +got):\n%s", tc.name, rank, diff)
			}

			// every batch is drawn from a single bucket
			schedule := sampler.Setup()
			for _, batch := range got {
				for _, index := range batch[1:] {
					if schedule.BucketOf(index) != schedule.BucketOf(batch[0]) {
						t.Fatalf("%s rank %d: batch %v mixes buckets", tc.name, rank, batch)
					}
				}
			}
		}
	}
}

func TestSamplerExhaustion(t *testing.T) {
	config := DefaultConfig()
	config.BatchSize = 4

	sampler := newSampler(t, config, data.Range(10))
	if got := sampler.State(); got != Uninitialized {
		t.Fatalf("got state %s want %s", got, Uninitialized)
	}
	if got := sampler.Len(); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
	if got := sampler.State(); got != Uninitialized {
		t.Fatalf("Len drew a shard: state %s", got)
	}

	first := drain(t, sampler)
	if got := sampler.State(); got != Exhausted {
		t.Fatalf("got state %s want %s", got, Exhausted)
	}
	for i := 0; i < 3; i++ {
		if _, err := sampler.Next(); !errors.Is(err, io.EOF) {
			t.Fatalf("got %v want %v", err, io.EOF)
		}
	}
	if got := sampler.Len(); got != 3 {
		t.Fatalf("length changed after iteration: got %d", got)
	}

	// resetting within the same epoch replays the same shard
	sampler.Reset()
	if got := sampler.State(); got != Ready {
		t.Fatalf("got state %s want %s", got, Ready)
	}
	if diff := cmp.Diff(first, drain(t, sampler)); diff != "" {
		t.Fatalf("reset changed the shard (-want +got):\n%s", diff)
	}

	sampler.AdvanceEpoch()
	if cmp.Equal(first, drain(t, sampler)) {
		t.Fatal("next epoch replayed the previous shard")
	}
}

func TestSamplerEmpty(t *testing.T) {
	sampler := newSampler(t, DefaultConfig(), data.Range(0))
	if got := sampler.Len(); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
	if _, err := sampler.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("got %v want %v", err, io.EOF)
	}
}

func TestSamplerSetEpoch(t *testing.T) {
	config := DefaultConfig()
	config.BatchSize = 3
	config.WorldSize = 2
	config.Rank = 1

	advanced := newSampler(t, config, data.Range(50))
	drain(t, advanced)
	advanced.AdvanceEpoch()
	advanced.AdvanceEpoch()

	resumed := newSampler(t, config, data.Range(50))
	resumed.SetEpoch(2)

	if advanced.Fingerprint() != resumed.Fingerprint() {
		t.Fatalf("fingerprints differ: %016x %016x", advanced.Fingerprint(), resumed.Fingerprint())
	}
	if diff := cmp.Diff(drain(t, advanced), drain(t, resumed)); diff != "" {
		t.Fatalf("batches mismatch (-advanced +resumed):\n%s", diff)
	}
}

// TestSamplerPartition checks that the shards of all ranks partition the
// dataset when no padding is needed, and that every rank agrees on the layout.
func TestSamplerPartition(t *testing.T) {
	const (
		datasetSize = 1 << 10
		worldSize   = 1 << 2
		batchSize   = 1 << 3
	)

	for epoch := int64(0); epoch < 5; epoch++ {
		shards := make([][][]int, worldSize)
		fingerprints := make([]uint64, worldSize)

		var g errgroup.Group
		for rank := 0; rank < worldSize; rank++ {
			rank := rank
			g.Go(func() error {
				config := DefaultConfig()
				config.BatchSize = batchSize
				config.Rank = rank
				config.WorldSize = worldSize
				config.InitSeed = 42

				sampler, err := New(config, data.Range(datasetSize))
				if err != nil {
					return err
				}
				sampler.SetEpoch(epoch)
				fingerprints[rank] = sampler.Fingerprint()
				for {
					indices, err := sampler.Next()
					if errors.Is(err, io.EOF) {
						return nil
					}
					shards[rank] = append(shards[rank], indices)
				}
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatal(err)
		}

		indices := make([]int, 0, datasetSize)
		for rank, shard := range shards {
			if fingerprints[rank] != fingerprints[0] {
				t.Fatalf("epoch %d: rank %d disagrees on the layout", epoch, rank)
			}
			if len(shard) != datasetSize/worldSize/batchSize {
				t.Fatalf("epoch %d: rank %d got %d batches", epoch, rank, len(shard))
			}
			for _, batch := range shard {
				if len(batch) != batchSize {
					t.Fatalf("epoch %d: rank %d got batch of size %d", epoch, rank, len(batch))
				}
				indices = append(indices, batch...)
			}
		}

		sort.Ints(indices)
		for index := range indices {
			if indices[index] != index {
				t.Fatalf("epoch %d: shards do not partition the dataset", epoch)
			}
		}
	}
}

func TestSamplerDeterminism(t *testing.T) {
	config := DefaultConfig()
	config.BatchSize = 4
	config.WorldSize = 3
	config.Rank = 2
	config.AspectRatioThresholds = []float64{.8, 1.25}

	dataset := data.NewAspectRatioDataset([]float64{.5, 1.5, .7, 1.2, 2., .9, 1.1, .6, 1., 1.3, .75, 3., 1.6, .4, 1.})
	first := newSampler(t, config, dataset)
	second := newSampler(t, config, dataset)

	for epoch := 0; epoch < 4; epoch++ {
		if epoch != 0 {
			first.AdvanceEpoch()
			second.AdvanceEpoch()
		}
		if diff := cmp.Diff(drain(t, first), drain(t, second)); diff != "" {
			t.Fatalf("epoch %d: batches mismatch (-first +second):\n%s", epoch, diff)
		}
	}
}

func TestSamplerUnsynchronized(t *testing.T) {
	const datasetSize = 64
	config := DefaultConfig()
	config.BatchSize = 8
	config.SyncSeedSchedule = false

	sampler := newSampler(t, config, data.Range(datasetSize))
	for epoch := 0; epoch < 3; epoch++ {
		if epoch != 0 {
			sampler.AdvanceEpoch()
		}
		if got := sampler.Epoch(); got != 0 {
			t.Fatalf("epoch counter advanced without the synchronized seed schedule: %d", got)
		}

		var indices []int
		for _, batch := range drain(t, sampler) {
			indices = append(indices, batch...)
		}
		sort.Ints(indices)
		for index := range indices {
			if indices[index] != index {
				t.Fatalf("epoch %d: batches do not cover the dataset", epoch)
			}
		}
	}
}

func BenchmarkSampler(b *testing.B) {
	b.StopTimer()
	const (
		datasetSize = 1 << 16
		worldSize   = 1 << 3
		batchSize   = 1 << 4
	)
	config := DefaultConfig()
	config.BatchSize = batchSize
	config.WorldSize = worldSize
	sampler, _ := New(config, data.Range(datasetSize))
	b.StartTimer()

	for epoch := 0; epoch < b.N; epoch++ {
		for _, err := sampler.Next(); err == nil; _, err = sampler.Next() {
		}
		sampler.AdvanceEpoch()
	}
}
