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

// The communicator package implements a remote sampler for workers that fetch
// their indices rather than compute them.  The primitives are based on the
// syntax of the Message Passing Interface (MPI); a job always starts with Init
// and ends with Finalize.  At the beginning of each training epoch, every rank
// invokes Bcast to receive its shard of the batches for the corresponding
// epoch.  Since the layout of an epoch is a pure function of the job and the
// epoch number, the ranks need not wait for each other.
package communicator

import (
	"context"
	"errors"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/9rum/detfeed/internal/data"
	"github.com/9rum/detfeed/sampler"
	"github.com/golang/glog"
	"github.com/golang/protobuf/ptypes/empty"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/exp/constraints"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// DefaultPlanCacheSize is the number of epoch plans kept per job.
	DefaultPlanCacheSize = 4

	// DefaultMaxLength is the default bound on the number of indices in the
	// plan of an epoch, padding included.
	DefaultMaxLength = 1 << 27
)

// ErrUnknownJob is returned for a job that was never initialized or has
// already been finalized.
var ErrUnknownJob = errors.New("unknown job")

// ErrJobTooLarge is returned for a job whose epoch plan would exceed the
// configured bound.
var ErrJobTooLarge = errors.New("job too large")

// job holds the schedule of a single sampling job.
type job struct {
	config   sampler.Config
	schedule *sampler.Schedule

	mu    sync.Mutex
	plans *lru.Cache[int64, *entry]

	// plans without a synchronized seed cannot be redrawn, so they stay here
	// until every rank has fetched them
	pending map[int64]*entry
}

// entry is a cached epoch plan.
type entry struct {
	plan        *sampler.Plan
	fingerprint uint64
	fetched     map[int]struct{}
}

// Option configures a communicator server.
type Option func(*communicatorServer)

// WithMaxLength bounds the number of indices in the plan of an epoch, padding
// included.  Init rejects larger jobs.
func WithMaxLength(length int) Option {
	return func(c *communicatorServer) {
		c.maxLength = length
	}
}

// WithPlanCacheSize sets the number of epoch plans kept per job.
func WithPlanCacheSize(size int) Option {
	return func(c *communicatorServer) {
		c.cacheSize = size
	}
}

// communicatorServer implements the server API for Communicator service.
type communicatorServer struct {
	UnimplementedCommunicatorServer
	mu        sync.RWMutex
	jobs      map[string]*job
	cacheSize int
	maxLength int
	metrics   *Metrics
	done      chan<- os.Signal
	once      sync.Once
}

// NewCommunicatorServer creates a new communicator server with the given
// arguments.  If done is not nil, it is closed once the last job is
// finalized.  metrics may be nil.
func NewCommunicatorServer(done chan<- os.Signal, metrics *Metrics, opts ...Option) CommunicatorServer {
	c := &communicatorServer{
		jobs:      make(map[string]*job),
		cacheSize: DefaultPlanCacheSize,
		maxLength: DefaultMaxLength,
		metrics:   metrics,
		done:      done,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init initializes a sampling job.
func (c *communicatorServer) Init(ctx context.Context, in *InitRequest) (*InitResponse, error) {
	glog.Infof("Init called with world size: %d batch size: %d length: %d", in.GetWorldSize(), in.GetBatchSize(), in.GetLength())

	config := sampler.Config{
		BatchSize:             int(in.GetBatchSize()),
		Shuffle:               in.GetShuffle(),
		AspectRatioThresholds: in.GetAspectRatioThresholds(),
		PadBatch:              in.GetPadBatch(),
		SyncSeedSchedule:      in.GetSyncSeedSchedule(),
		WorldSize:             int(in.GetWorldSize()),
		InitSeed:              in.GetInitSeed(),
	}

	dataset, err := newDataset(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	schedule, err := sampler.NewSchedule(config, dataset)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if length := schedule.NumBatches() * config.WorldSize * config.BatchSize; c.maxLength < length {
		return nil, status.Errorf(codes.InvalidArgument, "%v: plan of %d indices exceeds %d", ErrJobTooLarge, length, c.maxLength)
	}
	plans, err := lru.New[int64, *entry](c.cacheSize)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	warnings := config.Warnings()
	for _, warning := range warnings {
		glog.Warning(warning)
	}

	id := uuid.NewString()
	c.mu.Lock()
	c.jobs[id] = &job{
		config:   config,
		schedule: schedule,
		plans:    plans,
		pending:  make(map[int64]*entry),
	}
	c.metrics.setJobs(len(c.jobs))
	c.mu.Unlock()

	glog.Infof("job %s: %d batches per epoch", id, schedule.NumBatches())

	return &InitResponse{
		JobId:      id,
		NumBatches: int64(schedule.NumBatches()),
		Warnings:   warnings,
	}, nil
}

// newDataset creates the dataset described by the given request.
func newDataset(in *InitRequest) (data.Dataset, error) {
	if ratios := in.GetAspectRatios(); 0 < len(ratios) {
		if in.GetLength() != 0 && in.GetLength() != int64(len(ratios)) {
			return nil, sampler.ErrLengthMismatch
		}
		return data.NewAspectRatioDataset(ratios), nil
	}
	if in.GetLength() < 0 {
		return nil, errors.New("dataset length must not be negative")
	}
	return data.Range(in.GetLength()), nil
}

// lookup returns the job with the given id.
func (c *communicatorServer) lookup(id string) (*job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	j, ok := c.jobs[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "%v: %q", ErrUnknownJob, id)
	}
	return j, nil
}

// plan returns the plan of the given epoch for the given rank, drawing it if
// not cached.
func (j *job) plan(epoch int64, rank int, metrics *Metrics) *entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	e, ok := j.pending[epoch]
	if !ok {
		e, ok = j.plans.Get(epoch)
	}
	if !ok {
		start := time.Now()
		plan := j.schedule.Plan(epoch, sampler.NewPermuter(j.config, epoch))
		e = &entry{
			plan:        plan,
			fingerprint: plan.Fingerprint(),
		}
		metrics.observePlan(time.Since(start))
		glog.V(1).Infof("epoch: %d fingerprint %016x", epoch, e.fingerprint)

		if j.config.SyncSeedSchedule {
			j.plans.Add(epoch, e)
			return e
		}
		e.fetched = make(map[int]struct{}, j.config.WorldSize)
		j.pending[epoch] = e
	}

	if e.fetched != nil {
		e.fetched[rank] = struct{}{}
		if len(e.fetched) == j.config.WorldSize {
			delete(j.pending, epoch)
			e.fetched = nil
			j.plans.Add(epoch, e)
		}
	}
	return e
}

// Bcast returns the shard of the requesting rank for the requested epoch.
// Every rank of the same epoch receives a shard of the same plan.  Without a
// synchronized seed, a plan is held until every rank has fetched it and then
// cached like any other; a rank that fetches the epoch again after the plan
// has been evicted receives a shard of a newly drawn plan.
func (c *communicatorServer) Bcast(ctx context.Context, in *BcastRequest) (*BcastResponse, error) {
	glog.Infof("epoch: %d Bcast called from rank %d", in.GetEpoch(), in.GetRank())

	j, err := c.lookup(in.GetJobId())
	if err != nil {
		return nil, err
	}
	if in.GetRank() < 0 || int64(j.config.WorldSize) <= in.GetRank() {
		return nil, status.Errorf(codes.OutOfRange, "rank %d out of range [0, %d)", in.GetRank(), j.config.WorldSize)
	}

	e := j.plan(in.GetEpoch(), int(in.GetRank()), c.metrics)
	shard := e.plan.Shard(int(in.GetRank()))

	indices := make([]int, 0, len(shard)*j.config.BatchSize)
	lengths := make([]int, 0, len(shard))
	for _, batch := range shard {
		base := len(indices)
		for _, index := range batch {
			if index != sampler.Sentinel {
				indices = append(indices, index)
			}
		}
		lengths = append(lengths, len(indices)-base)
	}
	c.metrics.countBcast(in.GetRank())

	return &BcastResponse{
		Indices:     cast[int, int64](indices),
		Lengths:     cast[int, int64](lengths),
		Fingerprint: e.fingerprint,
	}, nil
}

// cast casts the given slice.
func cast[T, U constraints.Integer](slice []T) []U {
	out := make([]U, len(slice))
	if len(slice) == 0 {
		return out
	}
	stride := ceil(len(slice), runtime.NumCPU())

	var wg sync.WaitGroup
	for base := 0; base < len(slice); base += stride {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			limit := min(base+stride, len(slice))
			for index := base; index < limit; index++ {
				out[index] = U(slice[index])
			}
		}(base)
	}
	wg.Wait()

	return out
}

// ceil returns the least integer value greater than or equal to numerator / denominator.
func ceil(numerator, denominator int) int {
	if numerator%denominator == 0 {
		return numerator / denominator
	}
	return numerator/denominator + 1
}

// Len returns the number of steps of each rank in every epoch.
func (c *communicatorServer) Len(ctx context.Context, in *JobRequest) (*LenResponse, error) {
	j, err := c.lookup(in.GetJobId())
	if err != nil {
		return nil, err
	}
	return &LenResponse{NumBatches: int64(j.schedule.NumBatches())}, nil
}

// Finalize terminates the given job.
func (c *communicatorServer) Finalize(ctx context.Context, in *JobRequest) (*empty.Empty, error) {
	glog.Infof("Finalize called for job %s", in.GetJobId())
	defer glog.Flush()

	c.mu.Lock()
	if _, ok := c.jobs[in.GetJobId()]; !ok {
		c.mu.Unlock()
		return nil, status.Errorf(codes.NotFound, "%v: %q", ErrUnknownJob, in.GetJobId())
	}
	delete(c.jobs, in.GetJobId())
	remaining := len(c.jobs)
	c.metrics.setJobs(remaining)
	c.mu.Unlock()

	if remaining == 0 {
		c.close()
	}
	return new(empty.Empty), nil
}

// close notifies the main goroutine that the communicator runtime has ended.
func (c *communicatorServer) close() {
	if c.done == nil {
		return
	}
	c.once.Do(func() {
		close(c.done)
	})
}
