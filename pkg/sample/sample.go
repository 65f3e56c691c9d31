// Package sample writes synthetic BOA patient folders for demos and smoke tests.
package sample

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/jpfielding/boaguard.go/pkg/boa"
	"github.com/jpfielding/boaguard.go/pkg/codes"
	"github.com/jpfielding/boaguard.go/pkg/dcm"
	"github.com/jpfielding/boaguard.go/pkg/dcm/tag"
)

// uidRoot prefixes every generated UID
const uidRoot = "1.2.826.0.1.3680043.8.498"

// ReportFile is the run report written into each folder
const ReportFile = "report.xlsx"

// Patient describes the folder to generate. Zero fields are filled by Defaults.
type Patient struct {
	ID        string
	StudyUID  string
	SeriesUID string
	Accession string
	Slices    int
	Rows      int
	Columns   int
	Acquired  time.Time
	Offset    string // ±HHMM, empty for scanner local time
	Run       boa.RunInfo
}

// Defaults fills unset fields
func (p Patient) Defaults() Patient {
	if p.ID == "" {
		p.ID = "P1"
	}
	if p.StudyUID == "" {
		p.StudyUID = dcm.GenerateUID(uidRoot)
	}
	if p.SeriesUID == "" {
		p.SeriesUID = dcm.GenerateUID(uidRoot)
	}
	if p.Accession == "" {
		p.Accession = "ACC" + p.ID
	}
	if p.Slices <= 0 {
		p.Slices = 4
	}
	if p.Rows <= 0 {
		p.Rows = 16
	}
	if p.Columns <= 0 {
		p.Columns = 16
	}
	if p.Acquired.IsZero() {
		p.Acquired = time.Date(2024, 1, 15, 10, 15, 30, 0, time.UTC)
	}
	if p.Run == (boa.RunInfo{}) {
		p.Run = boa.RunInfo{Version: "0.0.0-sample", GitHash: "0000000", ContrastPhase: "VENOUS", ContrastInGIT: "NO_CONTRAST"}
	}
	return p
}

// WriteFolder lays down the measurement JSON, the run report and a DICOM series in dir
func WriteFolder(dir string, p Patient) error {
	p = p.Defaults()
	if err := os.MkdirAll(filepath.Join(dir, boa.DicomDir), 0o755); err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(seed(p.ID), 0))

	if err := writeJSON(filepath.Join(dir, boa.BodyCompositionFile), bodyComposition(rng, p.Slices)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, boa.SegmentationFile), segmentations(rng)); err != nil {
		return err
	}
	if err := boa.WriteRunInfo(filepath.Join(dir, ReportFile), p.Run); err != nil {
		return err
	}
	for i := range p.Slices {
		if err := writeSlice(dir, p, i); err != nil {
			return err
		}
	}
	return nil
}

func writeSlice(dir string, p Patient, i int) error {
	frame := make([]uint16, p.Rows*p.Columns)
	for j := range frame {
		// concentric rings so a viewer shows something body shaped
		x, y := j%p.Columns-p.Columns/2, j/p.Columns-p.Rows/2
		frame[j] = uint16(1024 + 40*int(math.Sqrt(float64(x*x+y*y))) + i)
	}
	date, clock := p.Acquired.Format("20060102"), p.Acquired.Format("150405")
	ds, err := dcm.NewDataset(
		dcm.WithFileMeta(dcm.CTImageStorageUID, dcm.GenerateUID(uidRoot), dcm.ExplicitVRLittleEndian),
		dcm.WithElement(tag.SpecificCharacterSet, "ISO_IR 100"),
		dcm.WithElement(tag.PatientID, p.ID),
		dcm.WithElement(tag.PatientName, "Sample^"+p.ID),
		dcm.WithElement(tag.StudyInstanceUID, p.StudyUID),
		dcm.WithElement(tag.SeriesInstanceUID, p.SeriesUID),
		dcm.WithElement(tag.AccessionNumber, p.Accession),
		dcm.WithElement(tag.StudyID, "1"),
		dcm.WithElement(tag.StudyDate, date),
		dcm.WithElement(tag.StudyTime, clock),
		dcm.WithElement(tag.AcquisitionDate, date),
		dcm.WithElement(tag.AcquisitionTime, clock),
		dcm.WithElement(tag.TimezoneOffsetFromUTC, p.Offset),
		dcm.WithElement(tag.Modality, "CT"),
		dcm.WithElement(tag.StudyDescription, "CT Thorax Abdomen"),
		dcm.WithElement(tag.SeriesDescription, "BOA sample"),
		dcm.WithElement(tag.SeriesNumber, 1),
		dcm.WithElement(tag.InstanceNumber, i+1),
		dcm.WithPixelData(p.Rows, p.Columns, frame),
	)
	if err != nil {
		return err
	}
	_, err = dcm.WriteFile(filepath.Join(dir, boa.DicomDir, fmt.Sprintf("slice-%04d.dcm", i+1)), ds)
	return err
}

func bodyComposition(rng *rand.Rand, slices int) map[string]any {
	regions := boa.Aggregate{}
	for i, r := range codes.Default().BodyComposition {
		all := map[string]boa.TissueSum{}
		noExt := map[string]boa.TissueSum{}
		for _, t := range codes.Default().Tissues {
			v := round3(rng.Float64() * 500)
			all[t.Key] = boa.TissueSum{Sum: v}
			noExt[t.Key] = boa.TissueSum{Sum: round3(v * 0.8)}
		}
		regions[r.Key] = boa.Region{
			MinSliceIdx:               i,
			MaxSliceIdx:               max(i, slices-1),
			Measurements:              all,
			MeasurementsNoExtremities: noExt,
		}
	}
	return map[string]any{"aggregated": regions}
}

// segmentations names every structure the way the segmentation model does, with the side last
func segmentations(rng *rand.Rand) map[string]any {
	total := map[string]boa.Segmentation{}
	for i, key := range codes.Default().Structures.Keys() {
		c := codes.Candidates(key)
		total[c[len(c)-1]] = boa.Segmentation{
			VolumeML: round3(rng.Float64() * 1500),
			Present:  i%7 != 0,
		}
	}
	return map[string]any{"segmentations": map[string]any{"total": total}}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func seed(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
