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

// Package sampler provides a deterministic batch sampler for distributed
// training.  Every rank derives the same global batch layout from nothing but
// the epoch number and the configured seed, then keeps its own contiguous
// shard of it.  Data samples may optionally be grouped by aspect ratio so that
// each batch holds samples of a similar shape.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/9rum/detfeed/internal/data"
)

var (
	// ErrNoAspectRatios is returned when grouping by aspect ratio is requested
	// but the dataset cannot report the aspect ratio of its data samples.
	ErrNoAspectRatios = errors.New("aspect ratio thresholds are set, but dataset does not provide aspect ratios")

	// ErrLengthMismatch is returned when the dataset reports a number of
	// aspect ratios different from its length.
	ErrLengthMismatch = errors.New("number of aspect ratios does not match dataset length")
)

// Schedule is the static structure of the epoch schedule.  It is computed once
// per dataset and shared by every epoch.
type Schedule struct {
	config         Config
	length         int
	wholeBatchSize int
	numBatches     int

	// bucket statistics, set only when grouping by aspect ratio
	bucketIDs   []int
	bucketSizes []int
	padLengths  []int
	members     [][]int
}

// NewSchedule computes the epoch schedule of the given dataset.
func NewSchedule(config Config, dataset data.Dataset) (*Schedule, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ratios, err := inspect(config, dataset)
	if err != nil {
		return nil, err
	}
	return newSchedule(config.clone(), dataset.Len(), ratios), nil
}

// inspect checks that the dataset can serve the given configuration and
// returns its aspect ratios if required.
func inspect(config Config, dataset data.Dataset) ([]float64, error) {
	if dataset.Len() < 0 {
		return nil, fmt.Errorf("dataset has negative length %d", dataset.Len())
	}
	// each bucket pads by less than a global batch
	buckets := len(config.AspectRatioThresholds) + 1
	if (math.MaxInt-dataset.Len())/buckets < config.WorldSize*config.BatchSize-1 {
		return nil, fmt.Errorf("%w: %d samples padded to a multiple of %d", ErrOverflow, dataset.Len(), config.WorldSize*config.BatchSize)
	}
	if !config.Bucketed() {
		return nil, nil
	}
	ratios, ok := data.AspectRatios(dataset)
	if !ok {
		return nil, ErrNoAspectRatios
	}
	if len(ratios) != dataset.Len() {
		return nil, fmt.Errorf("%w: got %d ratios for %d samples", ErrLengthMismatch, len(ratios), dataset.Len())
	}
	return ratios, nil
}

// newSchedule builds the schedule from an already inspected dataset.
func newSchedule(config Config, length int, ratios []float64) *Schedule {
	schedule := &Schedule{
		config:         config,
		length:         length,
		wholeBatchSize: config.WorldSize * config.BatchSize,
	}

	if !config.Bucketed() {
		schedule.numBatches = ceil(length, schedule.wholeBatchSize)
		return schedule
	}

	numBuckets := len(config.AspectRatioThresholds) + 1
	schedule.bucketIDs = make([]int, 0, length)
	schedule.bucketSizes = make([]int, numBuckets)
	for _, ratio := range ratios {
		id := Bucket(config.AspectRatioThresholds, ratio)
		schedule.bucketIDs = append(schedule.bucketIDs, id)
		schedule.bucketSizes[id]++
	}

	// membership lists hold the indices of each bucket in ascending order
	schedule.members = make([][]int, 0, numBuckets)
	for _, size := range schedule.bucketSizes {
		schedule.members = append(schedule.members, make([]int, 0, size))
	}
	for index, id := range schedule.bucketIDs {
		schedule.members[id] = append(schedule.members[id], index)
	}

	schedule.padLengths = make([]int, 0, numBuckets)
	for _, size := range schedule.bucketSizes {
		batches := ceil(size, schedule.wholeBatchSize)
		schedule.padLengths = append(schedule.padLengths, batches*schedule.wholeBatchSize-size)
		schedule.numBatches += batches
	}

	return schedule
}

// Bucket returns the bucket of the given aspect ratio, i.e., the number of
// thresholds not exceeding it.  The thresholds must be sorted in ascending
// order.  NaN falls into the last bucket.
func Bucket(thresholds []float64, ratio float64) int {
	return sort.Search(len(thresholds), func(i int) bool {
		return ratio < thresholds[i]
	})
}

// ceil returns the least integer value greater than or equal to numerator / denominator.
// This is an alternative to the Ceil function in the standard math package.
func ceil(numerator, denominator int) int {
	if numerator%denominator == 0 {
		return numerator / denominator
	}
	return numerator/denominator + 1
}

// NumBatches returns the number of steps of each rank in every epoch.
func (s *Schedule) NumBatches() int {
	return s.numBatches
}

// Len returns the number of data samples in the dataset.
func (s *Schedule) Len() int {
	return s.length
}

// Bucketed reports whether the schedule groups data samples by aspect ratio.
func (s *Schedule) Bucketed() bool {
	return s.bucketIDs != nil
}

// BucketOf returns the bucket of the data sample with the given index.
// It returns zero if the schedule does not group by aspect ratio.
func (s *Schedule) BucketOf(index int) int {
	if !s.Bucketed() {
		return 0
	}
	return s.bucketIDs[index]
}

// BucketSizes returns the number of data samples in each bucket.
func (s *Schedule) BucketSizes() []int {
	return append([]int(nil), s.bucketSizes...)
}

// PadLengths returns the number of reused indices appended to each bucket.
func (s *Schedule) PadLengths() []int {
	return append([]int(nil), s.padLengths...)
}
