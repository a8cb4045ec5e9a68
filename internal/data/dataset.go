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

// Package data provides primitives for describing the dataset to the sampler.
// The sampler never looks at the content of the data samples; it only needs
// the number of samples and, when grouping by aspect ratio, the aspect ratio
// of each sample indexed identically to the dataset.
package data

import "errors"

// ErrEmptyDataset is returned when a dataset description holds no samples
// where at least one is required.
var ErrEmptyDataset = errors.New("dataset is empty")

// Dataset represents the given dataset.
type Dataset interface {
	// Len returns the number of data samples in the dataset.
	Len() int
}

// AspectRatioer is implemented by datasets that can report the aspect ratio
// of each of their data samples.
type AspectRatioer interface {
	// AspectRatios returns one aspect ratio per data sample.  The returned
	// slice must not be modified.
	AspectRatios() []float64
}

// AspectRatios returns the aspect ratios of the given dataset, if any.
func AspectRatios(dataset Dataset) ([]float64, bool) {
	ratioer, ok := dataset.(AspectRatioer)
	if !ok {
		return nil, false
	}
	return ratioer.AspectRatios(), true
}

// Range represents a dataset known only by its length.
type Range int

// Len returns the number of data samples in the dataset.
func (r Range) Len() int {
	return int(r)
}

// AspectRatioDataset represents a dataset where every data sample carries its
// aspect ratio.
type AspectRatioDataset struct {
	ratios []float64
}

// NewAspectRatioDataset creates a new dataset with the given aspect ratios.
// The ratios are copied.
func NewAspectRatioDataset(ratios []float64) *AspectRatioDataset {
	return &AspectRatioDataset{
		ratios: append(make([]float64, 0, len(ratios)), ratios...),
	}
}

// Len returns the number of data samples in the dataset.
func (d *AspectRatioDataset) Len() int {
	return len(d.ratios)
}

// AspectRatios returns the aspect ratio of each data sample.
func (d *AspectRatioDataset) AspectRatios() []float64 {
	return d.ratios
}
