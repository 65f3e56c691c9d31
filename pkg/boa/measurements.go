// Package boa reads the per-patient output of the body composition analysis.
//
// A patient folder holds
//
//	bca-measurements.json    region sums (body composition)
//	total-measurements.json  whole-body segmentation volumes
//	dicoms/*.dcm             the analysed series
//	*.xlsx                   the run report, sheet "info"
//	*.pdf                    optional rendered report
package boa

import (
	"encoding/json"
	"fmt"
	"os"
)

// File names inside a patient folder
const (
	BodyCompositionFile = "bca-measurements.json"
	SegmentationFile    = "total-measurements.json"
	DicomDir            = "dicoms"
)

// Mode selects which tissue sums of a region are reported
type Mode int

const (
	AllTissue Mode = iota
	NoExtremities
)

// Key is the JSON field holding the sums for the mode
func (m Mode) Key() string {
	if m == NoExtremities {
		return "measurements_no_extremities"
	}
	return "measurements"
}

// Code is the measurement code of the observation built for the mode
func (m Mode) Code() string {
	if m == NoExtremities {
		return "volume-filtered"
	}
	return "volume-unfiltered"
}

func (m Mode) String() string {
	return m.Key()
}

// TissueSum is the volume of one tissue in a region, in ml
type TissueSum struct {
	Sum float64 `json:"sum"`
}

// Region is one body composition region with its axial extent
type Region struct {
	MinSliceIdx               int                  `json:"min_slice_idx"`
	MaxSliceIdx               int                  `json:"max_slice_idx"`
	Measurements              map[string]TissueSum `json:"measurements"`
	MeasurementsNoExtremities map[string]TissueSum `json:"measurements_no_extremities"`
}

// Sums returns the tissue table for the mode
func (r Region) Sums(m Mode) map[string]TissueSum {
	if m == NoExtremities {
		return r.MeasurementsNoExtremities
	}
	return r.Measurements
}

// Aggregate maps region keys to their measurements
type Aggregate map[string]Region

// Segmentation is one whole-body structure. Present is authoritative, VolumeML may be
// non-zero for absent structures.
type Segmentation struct {
	VolumeML float64 `json:"volume_ml"`
	Present  bool    `json:"present"`
}

// LoadBodyComposition reads the "aggregated" section of bca-measurements.json
func LoadBodyComposition(path string) (Aggregate, error) {
	var doc struct {
		Aggregated Aggregate `json:"aggregated"`
	}
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if doc.Aggregated == nil {
		return nil, fmt.Errorf("%s: missing \"aggregated\"", path)
	}
	return doc.Aggregated, nil
}

// LoadSegmentations reads the "segmentations.total" section of total-measurements.json
func LoadSegmentations(path string) (map[string]Segmentation, error) {
	var doc struct {
		Segmentations struct {
			Total map[string]Segmentation `json:"total"`
		} `json:"segmentations"`
	}
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if doc.Segmentations.Total == nil {
		return nil, fmt.Errorf("%s: missing \"segmentations.total\"", path)
	}
	return doc.Segmentations.Total, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
