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

package data

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LoadCOCO reads a COCO-style annotation file and returns a dataset whose
// aspect ratios are the width over the height of each image, in file order.
func LoadCOCO(path string) (*AspectRatioDataset, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dataset, err := ParseCOCO(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dataset, nil
}

// ParseCOCO parses COCO-style annotations from the given buffer.
func ParseCOCO(buf []byte) (*AspectRatioDataset, error) {
	if !gjson.ValidBytes(buf) {
		return nil, fmt.Errorf("invalid annotation json")
	}
	images := gjson.GetBytes(buf, "images")
	if !images.IsArray() {
		return nil, fmt.Errorf("annotations have no images array")
	}

	var (
		ratios []float64
		err    error
	)
	images.ForEach(func(_, image gjson.Result) bool {
		width, height := image.Get("width").Float(), image.Get("height").Float()
		if height <= 0 || width <= 0 {
			err = fmt.Errorf("image %s has invalid size %vx%v", image.Get("id").String(), width, height)
			return false
		}
		ratios = append(ratios, width/height)
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(ratios) == 0 {
		return nil, ErrEmptyDataset
	}

	return &AspectRatioDataset{ratios: ratios}, nil
}
