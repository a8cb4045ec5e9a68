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

package communicator

import "github.com/golang/protobuf/proto"

// The messages below carry protobuf struct tags and are encoded by the
// protobuf runtime directly from them; there is no descriptor to generate.

// InitRequest describes a sampling job: the sampler configuration shared by
// every rank and the dataset, given either by length or by aspect ratios.
type InitRequest struct {
	BatchSize             int64     `protobuf:"varint,1,opt,name=batch_size,json=batchSize,proto3" json:"batch_size,omitempty"`
	Shuffle               bool      `protobuf:"varint,2,opt,name=shuffle,proto3" json:"shuffle,omitempty"`
	AspectRatioThresholds []float64 `protobuf:"fixed64,3,rep,packed,name=aspect_ratio_thresholds,json=aspectRatioThresholds,proto3" json:"aspect_ratio_thresholds,omitempty"`
	PadBatch              bool      `protobuf:"varint,4,opt,name=pad_batch,json=padBatch,proto3" json:"pad_batch,omitempty"`
	SyncSeedSchedule      bool      `protobuf:"varint,5,opt,name=sync_seed_schedule,json=syncSeedSchedule,proto3" json:"sync_seed_schedule,omitempty"`
	WorldSize             int64     `protobuf:"varint,6,opt,name=world_size,json=worldSize,proto3" json:"world_size,omitempty"`
	InitSeed              int64     `protobuf:"varint,7,opt,name=init_seed,json=initSeed,proto3" json:"init_seed,omitempty"`
	Length                int64     `protobuf:"varint,8,opt,name=length,proto3" json:"length,omitempty"`
	AspectRatios          []float64 `protobuf:"fixed64,9,rep,packed,name=aspect_ratios,json=aspectRatios,proto3" json:"aspect_ratios,omitempty"`
	XXX_NoUnkeyedLiteral  struct{}  `json:"-"`
	XXX_unrecognized      []byte    `json:"-"`
	XXX_sizecache         int32     `json:"-"`
}

func (m *InitRequest) Reset()         { *m = InitRequest{} }
func (m *InitRequest) String() string { return proto.CompactTextString(m) }
func (*InitRequest) ProtoMessage()    {}

func (m *InitRequest) GetBatchSize() int64 {
	if m != nil {
		return m.BatchSize
	}
	return 0
}

func (m *InitRequest) GetShuffle() bool {
	if m != nil {
		return m.Shuffle
	}
	return false
}

func (m *InitRequest) GetAspectRatioThresholds() []float64 {
	if m != nil {
		return m.AspectRatioThresholds
	}
	return nil
}

func (m *InitRequest) GetPadBatch() bool {
	if m != nil {
		return m.PadBatch
	}
	return false
}

func (m *InitRequest) GetSyncSeedSchedule() bool {
	if m != nil {
		return m.SyncSeedSchedule
	}
	return false
}

func (m *InitRequest) GetWorldSize() int64 {
	if m != nil {
		return m.WorldSize
	}
	return 0
}

func (m *InitRequest) GetInitSeed() int64 {
	if m != nil {
		return m.InitSeed
	}
	return 0
}

func (m *InitRequest) GetLength() int64 {
	if m != nil {
		return m.Length
	}
	return 0
}

func (m *InitRequest) GetAspectRatios() []float64 {
	if m != nil {
		return m.AspectRatios
	}
	return nil
}

// InitResponse identifies the job created by Init.
type InitResponse struct {
	JobId                string   `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	NumBatches           int64    `protobuf:"varint,2,opt,name=num_batches,json=numBatches,proto3" json:"num_batches,omitempty"`
	Warnings             []string `protobuf:"bytes,3,rep,name=warnings,proto3" json:"warnings,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *InitResponse) Reset()         { *m = InitResponse{} }
func (m *InitResponse) String() string { return proto.CompactTextString(m) }
func (*InitResponse) ProtoMessage()    {}

func (m *InitResponse) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

func (m *InitResponse) GetNumBatches() int64 {
	if m != nil {
		return m.NumBatches
	}
	return 0
}

func (m *InitResponse) GetWarnings() []string {
	if m != nil {
		return m.Warnings
	}
	return nil
}

// BcastRequest asks for the shard of the given rank in the given epoch.
type BcastRequest struct {
	JobId                string   `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	Epoch                int64    `protobuf:"varint,2,opt,name=epoch,proto3" json:"epoch,omitempty"`
	Rank                 int64    `protobuf:"varint,3,opt,name=rank,proto3" json:"rank,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *BcastRequest) Reset()         { *m = BcastRequest{} }
func (m *BcastRequest) String() string { return proto.CompactTextString(m) }
func (*BcastRequest) ProtoMessage()    {}

func (m *BcastRequest) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

func (m *BcastRequest) GetEpoch() int64 {
	if m != nil {
		return m.Epoch
	}
	return 0
}

func (m *BcastRequest) GetRank() int64 {
	if m != nil {
		return m.Rank
	}
	return 0
}

// BcastResponse carries a shard flattened into indices, with the length of
// each of its batches in order.
type BcastResponse struct {
	Indices              []int64  `protobuf:"varint,1,rep,packed,name=indices,proto3" json:"indices,omitempty"`
	Lengths              []int64  `protobuf:"varint,2,rep,packed,name=lengths,proto3" json:"lengths,omitempty"`
	Fingerprint          uint64   `protobuf:"varint,3,opt,name=fingerprint,proto3" json:"fingerprint,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *BcastResponse) Reset()         { *m = BcastResponse{} }
func (m *BcastResponse) String() string { return proto.CompactTextString(m) }
func (*BcastResponse) ProtoMessage()    {}

func (m *BcastResponse) GetIndices() []int64 {
	if m != nil {
		return m.Indices
	}
	return nil
}

func (m *BcastResponse) GetLengths() []int64 {
	if m != nil {
		return m.Lengths
	}
	return nil
}

func (m *BcastResponse) GetFingerprint() uint64 {
	if m != nil {
		return m.Fingerprint
	}
	return 0
}

// Batches splits the flattened shard back into batches.
func (m *BcastResponse) Batches() [][]int64 {
	batches := make([][]int64, 0, len(m.GetLengths()))
	base := 0
	for _, length := range m.GetLengths() {
		batches = append(batches, m.GetIndices()[base:base+int(length)])
		base += int(length)
	}
	return batches
}

// JobRequest identifies a job.
type JobRequest struct {
	JobId                string   `protobuf:"bytes,1,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *JobRequest) Reset()         { *m = JobRequest{} }
func (m *JobRequest) String() string { return proto.CompactTextString(m) }
func (*JobRequest) ProtoMessage()    {}

func (m *JobRequest) GetJobId() string {
	if m != nil {
		return m.JobId
	}
	return ""
}

// LenResponse carries the number of steps of each rank in every epoch.
type LenResponse struct {
	NumBatches           int64    `protobuf:"varint,1,opt,name=num_batches,json=numBatches,proto3" json:"num_batches,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *LenResponse) Reset()         { *m = LenResponse{} }
func (m *LenResponse) String() string { return proto.CompactTextString(m) }
func (*LenResponse) ProtoMessage()    {}

func (m *LenResponse) GetNumBatches() int64 {
	if m != nil {
		return m.NumBatches
	}
	return 0
}

func init() {
	proto.RegisterType((*InitRequest)(nil), "detfeed.InitRequest")
	proto.RegisterType((*InitResponse)(nil), "detfeed.InitResponse")
	proto.RegisterType((*BcastRequest)(nil), "detfeed.BcastRequest")
	proto.RegisterType((*BcastResponse)(nil), "detfeed.BcastResponse")
	proto.RegisterType((*JobRequest)(nil), "detfeed.JobRequest")
	proto.RegisterType((*LenResponse)(nil), "detfeed.LenResponse")
}
