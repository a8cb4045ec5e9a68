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
	"io"

	"github.com/9rum/detfeed/internal/data"
	"github.com/golang/glog"
)

// State represents the state of the sampler within an epoch.
type State int

const (
	// Uninitialized means that no shard has been drawn yet.
	Uninitialized State = iota
	// Ready means that the sampler has batches left in the current epoch.
	Ready
	// Exhausted means that the shard of the current epoch has been consumed.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Sampler yields the local batches of a single rank, epoch after epoch.
// The owning training loop drains the sampler with Next and then calls
// AdvanceEpoch to start the next epoch.  A Sampler is not safe for concurrent
// use.
type Sampler struct {
	config   Config
	length   int
	ratios   []float64
	schedule *Schedule
	plan     *Plan
	shard    [][]int
	epoch    int64
	step     int
	state    State
}

// New creates a new sampler with the given arguments.  The configuration
// errors, including a dataset that cannot serve the configuration, are
// reported here; the usage warnings are logged.
func New(config Config, dataset data.Dataset) (*Sampler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	ratios, err := inspect(config, dataset)
	if err != nil {
		return nil, err
	}
	for _, warning := range config.Warnings() {
		glog.Warning(warning)
	}

	return &Sampler{
		config: config.clone(),
		length: dataset.Len(),
		ratios: append([]float64(nil), ratios...),
	}, nil
}

// Setup computes the epoch schedule if not done yet and returns it.
func (s *Sampler) Setup() *Schedule {
	if s.schedule == nil {
		s.schedule = newSchedule(s.config, s.length, s.ratios)
		glog.Infof("rank %d: %d batches per epoch over %d samples", s.config.Rank, s.schedule.NumBatches(), s.length)
	}
	return s.schedule
}

// Reset draws the shard of the current epoch and rewinds the cursor.  Under
// the synchronized seed schedule, resetting twice within the same epoch
// yields the same shard.
func (s *Sampler) Reset() {
	s.plan = s.Setup().Plan(s.epoch, NewPermuter(s.config, s.epoch))
	s.shard = s.plan.Shard(s.config.Rank)
	s.step = 0
	s.state = Ready
	if len(s.shard) == 0 {
		s.state = Exhausted
	}
	if glog.V(1) {
		glog.Infof("rank %d: epoch %d fingerprint %016x", s.config.Rank, s.epoch, s.plan.Fingerprint())
	}
}

// AdvanceEpoch starts the next epoch.  The epoch counter advances by exactly
// one under the synchronized seed schedule; otherwise the counter stays and
// the permutation is redrawn from the process-local random source.
func (s *Sampler) AdvanceEpoch() {
	if s.config.SyncSeedSchedule {
		s.epoch++
	}
	s.Reset()
}

// SetEpoch positions the epoch counter, e.g., when resuming from a checkpoint,
// and draws the shard of that epoch.
func (s *Sampler) SetEpoch(epoch int64) {
	s.epoch = epoch
	s.Reset()
}

// Epoch returns the current value of the epoch counter.
func (s *Sampler) Epoch() int64 {
	return s.epoch
}

// Len returns the number of steps in every epoch.  It never draws a shard.
func (s *Sampler) Len() int {
	return s.Setup().NumBatches()
}

// State returns the state of the cursor.
func (s *Sampler) State() State {
	return s.state
}

// Step returns the number of batches yielded in the current epoch.
func (s *Sampler) Step() int {
	return s.step
}

// Config returns the configuration of the sampler.
func (s *Sampler) Config() Config {
	return s.config.clone()
}

// Next returns the indices of the next local batch.  It returns io.EOF once
// the shard of the current epoch is exhausted, and keeps doing so until the
// next call to Reset, SetEpoch or AdvanceEpoch.
func (s *Sampler) Next() ([]int, error) {
	if s.plan == nil {
		s.Reset()
	}
	if s.state == Exhausted {
		return nil, io.EOF
	}

	batch := s.shard[s.step]
	indices := make([]int, 0, len(batch))
	for _, index := range batch {
		if index != Sentinel {
			indices = append(indices, index)
		}
	}

	s.step++
	if len(s.shard) <= s.step {
		s.state = Exhausted
	}
	return indices, nil
}

// Fingerprint returns the digest of the global batch layout of the current
// epoch, drawing the shard if needed.
func (s *Sampler) Fingerprint() uint64 {
	if s.plan == nil {
		s.Reset()
	}
	return s.plan.Fingerprint()
}
