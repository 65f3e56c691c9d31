package fhir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/jpfielding/boaguard.go/pkg/boa"
	"github.com/jpfielding/boaguard.go/pkg/codes"
	"github.com/jpfielding/boaguard.go/pkg/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func testTags() series.TagSet {
	return series.TagSet{
		StudyInstanceUID:  ptr("1.2.3"),
		SeriesInstanceUID: ptr("4.5.6"),
		PatientID:         ptr("P1"),
		AccessionNumber:   ptr("A100"),
		Modality:          ptr("CT"),
		SeriesDescription: ptr("Abdomen"),
		SeriesNumber:      ptr("3"),
		ImageID:           series.ImageID("1.2.3", "4.5.6"),
		Started:           "2024-01-15T10:15:30+01:00",
		Effective:         "2024-01-15T10:20:00+01:00",
		NumberOfInstances: 120,
	}
}

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func region(lo, hi int, sums map[string]float64) boa.Region {
	m := map[string]boa.TissueSum{}
	for k, v := range sums {
		m[k] = boa.TissueSum{Sum: v}
	}
	return boa.Region{MinSliceIdx: lo, MaxSliceIdx: hi, Measurements: m, MeasurementsNoExtremities: m}
}

// -----------------------------------------------------------------------------
// ImagingStudy
// -----------------------------------------------------------------------------

func TestImagingStudy(t *testing.T) {
	b := NewBuilder(&SequenceIDs{Prefix: "id"})
	s := b.ImagingStudy(testTags())

	assert.Equal(t, "ImagingStudy", s.ResourceType)
	assert.Equal(t, "id-1", s.ID)
	assert.Equal(t, "available", s.Status)
	assert.Equal(t, "Patient/P1", s.Subject.Reference)
	assert.Equal(t, "2024-01-15T10:15:30+01:00", s.Started)
	assert.Equal(t, 1, s.NumberOfSeries)
	assert.Equal(t, []Identifier{
		{System: SystemDicomUID, Value: "urn:oid:1.2.3"},
		{System: SystemAccession, Value: "A100"},
		{System: SystemImageID, Value: sha("1.2.3_4.5.6")},
	}, s.Identifier)

	require.Len(t, s.Series, 1)
	ser := s.Series[0]
	assert.Equal(t, "4.5.6", ser.UID)
	require.NotNil(t, ser.Number)
	assert.Equal(t, 3, *ser.Number)
	assert.Equal(t, "CT", ser.Modality.Code)
	assert.Equal(t, "Abdomen", ser.Description)
	assert.Equal(t, 120, ser.NumberOfInstances)
}

func TestImagingStudy_UnknownTags(t *testing.T) {
	s := NewBuilder(nil).ImagingStudy(series.TagSet{ImageID: "TODO", Started: "TODO", NumberOfInstances: 1})
	assert.Empty(t, s.Identifier)
	assert.Nil(t, s.Subject)
	assert.Nil(t, s.Series[0].Number)
	assert.Nil(t, s.Series[0].Modality)
	assert.Len(t, s.ID, 64)
}

// -----------------------------------------------------------------------------
// Body composition
// -----------------------------------------------------------------------------

func TestBodyComposition_Pericardium(t *testing.T) {
	agg := boa.Aggregate{"pericardium": region(10, 42, map[string]float64{"vat": 12.345})}
	obs := NewBuilder(nil).BodyComposition(testTags(), agg, codes.Default(), boa.AllTissue)
	require.Len(t, obs, 1)
	o := obs[0]

	assert.Equal(t, "preliminary", o.Status)
	assert.Equal(t, Concept(SystemMeasurements, "volume-unfiltered"), o.Code)
	assert.Equal(t, "76848001", o.BodySite.Coding[0].Code)
	assert.Equal(t, SystemBodySite, o.BodySite.Coding[0].System)
	assert.Equal(t, "2024-01-15T10:20:00+01:00", o.EffectiveDateTime)
	require.Len(t, o.DerivedFrom, 1)
	assert.Equal(t, sha("1.2.3_4.5.6"), o.DerivedFrom[0].Identifier.Value)

	require.Len(t, o.Component, 2)
	rng := o.Component[0]
	assert.Equal(t, CodeSliceRange, rng.Code.Coding[0].Code)
	assert.Equal(t, "10 - 42", rng.Code.Coding[0].Display)
	assert.Equal(t, json.Number("10"), rng.ValueRange.Low.Value)
	assert.Equal(t, json.Number("42"), rng.ValueRange.High.Value)

	vat := o.Component[1]
	assert.Equal(t, "RID50365", vat.Code.Coding[0].Code)
	assert.Equal(t, json.Number("12.35"), vat.ValueQuantity.Value)
	assert.Equal(t, "ml", vat.ValueQuantity.Unit)
}

func TestBodyComposition_SkipsAbsentRegions(t *testing.T) {
	agg := boa.Aggregate{
		"abdominal_cavity": region(0, 100, map[string]float64{"muscle": 1}),
		"thoracic_cavity":  region(100, 200, map[string]float64{"muscle": 2}),
		"pericardium":      region(150, 180, map[string]float64{"eat": 3}),
		"unknown_region":   region(0, 1, nil),
	}
	b := NewBuilder(nil)
	for _, mode := range []boa.Mode{boa.AllTissue, boa.NoExtremities} {
		obs := b.BodyComposition(testTags(), agg, codes.Default(), mode)
		require.Len(t, obs, 3, mode.String())
		// table order
		assert.Equal(t, "361473009", obs[0].BodySite.Coding[0].Code)
		assert.Equal(t, "43799004", obs[1].BodySite.Coding[0].Code)
		assert.Equal(t, "76848001", obs[2].BodySite.Coding[0].Code)
		assert.Equal(t, mode.Code(), obs[0].Code.Coding[0].Code)
	}
}

func TestBodyComposition_ModeSelectsSums(t *testing.T) {
	r := boa.Region{
		MinSliceIdx:               1,
		MaxSliceIdx:               2,
		Measurements:              map[string]boa.TissueSum{"bone": {Sum: 10}, "sat": {Sum: 4}},
		MeasurementsNoExtremities: map[string]boa.TissueSum{"bone": {Sum: 7}},
	}
	agg := boa.Aggregate{"mediastinum": r}
	b := NewBuilder(nil)

	all := b.BodyComposition(testTags(), agg, codes.Default(), boa.AllTissue)[0]
	require.Len(t, all.Component, 3)
	assert.Equal(t, json.Number("10.00"), all.Component[1].ValueQuantity.Value)
	assert.Equal(t, "sat", all.Component[2].Code.Coding[0].Code)

	filtered := b.BodyComposition(testTags(), agg, codes.Default(), boa.NoExtremities)[0]
	require.Len(t, filtered.Component, 2)
	assert.Equal(t, json.Number("7.00"), filtered.Component[1].ValueQuantity.Value)
}

// -----------------------------------------------------------------------------
// Body structure volume
// -----------------------------------------------------------------------------

func TestBodyStructureVolume_GluteusPresent(t *testing.T) {
	segs := map[string]boa.Segmentation{"gluteus_maximus_left": {VolumeML: 5.0, Present: true}}
	o := NewBuilder(nil).BodyStructureVolume(testTags(), segs, codes.Default())

	assert.Equal(t, CodeBodyStructureVolume, o.Code.Coding[0].Code)
	require.Len(t, o.Component, 1)
	c := o.Component[0]
	assert.Equal(t, SystemBodyStructure, c.Code.Coding[0].System)
	assert.Equal(t, "gluteus-maximus-left", c.Code.Coding[0].Code)
	assert.Equal(t, json.Number("5.00"), c.ValueQuantity.Value)
	assert.Equal(t, "ml", c.ValueQuantity.Unit)
}

func TestBodyStructureVolume_AbsentIsZero(t *testing.T) {
	segs := map[string]boa.Segmentation{"gluteus_maximus_left": {VolumeML: 5.0, Present: false}}
	o := NewBuilder(nil).BodyStructureVolume(testTags(), segs, codes.Default())
	require.Len(t, o.Component, 1)
	assert.Equal(t, json.Number("0.0"), o.Component[0].ValueQuantity.Value)

	b, err := json.Marshal(o.Component[0].ValueQuantity)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":0.0,"unit":"ml"}`, string(b))
	assert.Contains(t, string(b), `"value":0.0`)
}

func TestBodyStructureVolume_TableOrderAndOmission(t *testing.T) {
	segs := map[string]boa.Segmentation{
		"urinary_bladder": {VolumeML: 300, Present: true},
		"spleen":          {VolumeML: 200.456, Present: true},
		"not_a_structure": {VolumeML: 1, Present: true},
	}
	o := NewBuilder(nil).BodyStructureVolume(testTags(), segs, codes.Default())
	require.Len(t, o.Component, 2)
	assert.Equal(t, "78961009", o.Component[0].Code.Coding[0].Code)
	assert.Equal(t, json.Number("200.46"), o.Component[0].ValueQuantity.Value)
	assert.Equal(t, "89837001", o.Component[1].Code.Coding[0].Code)
}

// -----------------------------------------------------------------------------
// Diagnostic report and Build
// -----------------------------------------------------------------------------

func TestDiagnosticReport(t *testing.T) {
	b := NewBuilder(&SequenceIDs{Prefix: "r"})
	study := b.ImagingStudy(testTags())
	obs := []*Observation{b.BodyStructureVolume(testTags(), nil, codes.Default())}
	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	info := boa.RunInfo{Version: "1.4.0", GitHash: "abc", ContrastPhase: "VENOUS"}
	arts := []boa.Artifact{{Title: "report.xlsx", ContentType: boa.ContentTypeXLSX, Size: 10, SHA1: "aGFzaA==", Created: created}}

	dr := b.DiagnosticReport(testTags(), info, arts, study, obs)
	assert.Equal(t, "r-3", dr.ID)
	assert.Equal(t, Concept(SystemMeasurements, CodeReport), dr.Code)
	assert.Equal(t, []Reference{{Reference: "ImagingStudy/r-1"}}, dr.ImagingStudy)
	assert.Equal(t, []Reference{{Reference: "Observation/r-2"}}, dr.Result)

	// empty provenance values are left out
	require.Len(t, dr.Category, 3)
	assert.Equal(t, Coding{System: SystemRunInfo, Code: "boa-version", Display: "1.4.0"}, dr.Category[0].Coding[0])
	assert.Equal(t, "predicted-contrast-phase", dr.Category[2].Coding[0].Code)

	require.Len(t, dr.PresentedForm, 1)
	assert.Equal(t, Attachment{
		ContentType: boa.ContentTypeXLSX,
		Size:        10,
		Hash:        "aGFzaA==",
		Title:       "report.xlsx",
		Creation:    "2024-02-01T08:00:00+00:00",
	}, dr.PresentedForm[0])
}

func TestBuild_EndToEnd(t *testing.T) {
	in := Inputs{
		Tags:          testTags(),
		Composition:   boa.Aggregate{"pericardium": region(5, 9, map[string]float64{"vat": 12.345})},
		Segmentations: map[string]boa.Segmentation{"gluteus_maximus_left": {VolumeML: 5, Present: true}},
		RunInfo:       boa.RunInfo{Version: "1"},
	}
	resources := NewBuilder(nil).Build(in, nil)
	require.Len(t, resources, 5)

	kinds := make([]string, len(resources))
	seen := map[string]bool{}
	for i, r := range resources {
		kinds[i] = r.ResourceKind()
		assert.False(t, seen[r.ResourceID()])
		seen[r.ResourceID()] = true
	}
	assert.Equal(t, []string{"ImagingStudy", "Observation", "Observation", "Observation", "DiagnosticReport"}, kinds)

	dr := resources[4].(*DiagnosticReport)
	assert.Equal(t, "ImagingStudy/"+resources[0].ResourceID(), dr.ImagingStudy[0].Reference)
	require.Len(t, dr.Result, 3)
	for i, ref := range dr.Result {
		assert.Equal(t, "Observation/"+resources[i+1].ResourceID(), ref.Reference)
	}

	// every observation references the same patient and image
	for _, r := range resources[1:4] {
		o := r.(*Observation)
		assert.Equal(t, "Patient/P1", o.Subject.Reference)
		assert.Equal(t, sha("1.2.3_4.5.6"), o.DerivedFrom[0].Identifier.Value)
	}

	raw, err := json.Marshal(resources[1])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"value":12.35,"unit":"ml"`)
	assert.Contains(t, string(raw), `"code":"76848001"`)
}

func TestBuild_IdsDifferAcrossRuns(t *testing.T) {
	in := Inputs{Tags: testTags()}
	first := NewBuilder(nil).Build(in, nil)
	second := NewBuilder(nil).Build(in, nil)
	require.Len(t, first, len(second))
	for i := range first {
		assert.NotEqual(t, first[i].ResourceID(), second[i].ResourceID())
	}
}
