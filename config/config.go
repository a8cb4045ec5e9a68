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

// Package config loads sampling job files.  A job file is a YAML document
// holding the sampler configuration and a description of the dataset:
//
//	sampler:
//	  batch_size: 2
//	  aspect_ratio_thresholds: [1.0]
//	  world_size: 8
//	dataset:
//	  coco: annotations/instances_train2017.json
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/9rum/detfeed/internal/data"
	"github.com/9rum/detfeed/sampler"
	"github.com/hashicorp/go-multierror"
	"sigs.k8s.io/yaml"
)

// File is the content of a job file.
type File struct {
	Sampler sampler.Config `json:"sampler"`
	Dataset Dataset        `json:"dataset"`
}

// Dataset describes the dataset of a job.  Exactly one of the fields must be
// set.
type Dataset struct {
	// Length describes a dataset known only by its length.
	Length *int `json:"length,omitempty"`

	// AspectRatios lists the aspect ratio of each data sample.
	AspectRatios []float64 `json:"aspect_ratios,omitempty"`

	// COCO is the path of a COCO-style annotation file.  Relative paths are
	// resolved against the directory of the job file.
	COCO string `json:"coco,omitempty"`
}

// Load reads the job file at the given path.
func Load(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if file.Dataset.COCO != "" && !filepath.IsAbs(file.Dataset.COCO) {
		file.Dataset.COCO = filepath.Join(filepath.Dir(path), file.Dataset.COCO)
	}
	return file, nil
}

// Parse decodes a job file.  Unset sampler fields take the values of
// sampler.DefaultConfig.
func Parse(buf []byte) (*File, error) {
	file := &File{Sampler: sampler.DefaultConfig()}
	if err := yaml.UnmarshalStrict(buf, file); err != nil {
		return nil, err
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

// Validate checks the job file and reports every violation at once.
func (f *File) Validate() error {
	var result *multierror.Error

	if err := f.Sampler.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	set := 0
	if f.Dataset.Length != nil {
		set++
		if *f.Dataset.Length < 0 {
			result = multierror.Append(result, fmt.Errorf("dataset length must not be negative, got %d", *f.Dataset.Length))
		}
	}
	if 0 < len(f.Dataset.AspectRatios) {
		set++
	}
	if f.Dataset.COCO != "" {
		set++
	}
	if set != 1 {
		result = multierror.Append(result, errors.New("exactly one of dataset length, aspect_ratios and coco must be set"))
	}

	return result.ErrorOrNil()
}

// SamplerConfig returns the sampler configuration of the given rank.
func (f *File) SamplerConfig(rank int) sampler.Config {
	config := f.Sampler
	config.Rank = rank
	return config
}

// OpenDataset creates the dataset described by the job file.
func (f *File) OpenDataset() (data.Dataset, error) {
	switch {
	case f.Dataset.COCO != "":
		dataset, err := data.LoadCOCO(f.Dataset.COCO)
		if err != nil {
			return nil, err
		}
		return dataset, nil
	case 0 < len(f.Dataset.AspectRatios):
		return data.NewAspectRatioDataset(f.Dataset.AspectRatios), nil
	case f.Dataset.Length != nil:
		return data.Range(*f.Dataset.Length), nil
	default:
		return nil, data.ErrEmptyDataset
	}
}
