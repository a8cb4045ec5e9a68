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
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrPadBatchRequired is returned when grouping by aspect ratio is
	// requested while batch padding is disabled; bucketed batches are never
	// dropped, only padded.
	ErrPadBatchRequired = errors.New("pad batch must be enabled when grouping by aspect ratio")

	// ErrUnorderedThresholds is returned when the aspect ratio thresholds are
	// not strictly ascending.
	ErrUnorderedThresholds = errors.New("aspect ratio thresholds must be strictly ascending")

	// ErrOverflow is returned when the global batch or the padded dataset
	// does not fit in an int.
	ErrOverflow = errors.New("size overflows int")
)

// Config holds the immutable configuration of a sampler.
type Config struct {
	// BatchSize is the local batch size, i.e., the number of data samples
	// each rank receives at each step.
	BatchSize int `json:"batch_size"`

	// Shuffle enables shuffling of the data samples and of the batch order.
	Shuffle bool `json:"shuffle"`

	// AspectRatioThresholds are the bucket boundaries used to group data
	// samples of similar aspect ratio into the same batch.  k thresholds
	// produce k+1 buckets.  Grouping is disabled when empty.
	AspectRatioThresholds []float64 `json:"aspect_ratio_thresholds,omitempty"`

	// PadBatch fills under-full batches with reused indices.  When disabled,
	// the last batches may be shorter than BatchSize.
	PadBatch bool `json:"pad_batch"`

	// SyncSeedSchedule derives the permutation of each epoch from
	// InitSeed + epoch so that every rank computes the same permutation.
	SyncSeedSchedule bool `json:"sync_seed_schedule"`

	// Rank is the identifier of this process within the group.
	Rank int `json:"rank"`

	// WorldSize is the total number of processes in the group.
	WorldSize int `json:"world_size"`

	// InitSeed is the base seed of the synchronized seed schedule.
	InitSeed int64 `json:"init_seed"`
}

// DefaultConfig returns the default configuration for a single process.
func DefaultConfig() Config {
	return Config{
		BatchSize:        1,
		Shuffle:          true,
		PadBatch:         true,
		SyncSeedSchedule: true,
		Rank:             0,
		WorldSize:        1,
		InitSeed:         1,
	}
}

// Bucketed reports whether the data samples are grouped by aspect ratio.
func (c Config) Bucketed() bool {
	return 0 < len(c.AspectRatioThresholds)
}

// Validate checks the configuration and reports every violation at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.BatchSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.WorldSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("world size must be positive, got %d", c.WorldSize))
	} else if c.Rank < 0 || c.WorldSize <= c.Rank {
		result = multierror.Append(result, fmt.Errorf("rank must be in [0, %d), got %d", c.WorldSize, c.Rank))
	}
	if 0 < c.BatchSize && 0 < c.WorldSize && math.MaxInt/c.BatchSize < c.WorldSize {
		result = multierror.Append(result, fmt.Errorf("%w: global batch of %d x %d", ErrOverflow, c.WorldSize, c.BatchSize))
	}

	if c.Bucketed() {
		if !c.PadBatch {
			result = multierror.Append(result, ErrPadBatchRequired)
		}
		for index, threshold := range c.AspectRatioThresholds {
			if math.IsNaN(threshold) || 0 < index && threshold <= c.AspectRatioThresholds[index-1] {
				result = multierror.Append(result, fmt.Errorf("%w: %v", ErrUnorderedThresholds, c.AspectRatioThresholds))
				break
			}
		}
	}

	return result.ErrorOrNil()
}

// Warnings returns the non-fatal usage warnings of the configuration.
func (c Config) Warnings() (warnings []string) {
	if 1 < c.WorldSize && !c.SyncSeedSchedule {
		warnings = append(warnings, "disabling sync seed schedule is not recommended for distributed training, ranks will draw diverging permutations")
	}
	return
}

// clone returns a deep copy of the configuration.
func (c Config) clone() Config {
	if c.Bucketed() {
		c.AspectRatioThresholds = append(make([]float64, 0, len(c.AspectRatioThresholds)), c.AspectRatioThresholds...)
	} else {
		c.AspectRatioThresholds = nil
	}
	return c
}
