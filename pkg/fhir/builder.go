// Package fhir builds the FHIR resources for one BOA patient folder and wraps them into
// transaction bundles.
//
// Every resource gets a fresh id from the Builder's IDGenerator, and the DiagnosticReport
// references the ids assigned in the same pass. Observations point back at the analysed series
// through a logical reference on the image id, which the ImagingStudy also carries as an
// identifier.
package fhir

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jpfielding/boaguard.go/pkg/boa"
	"github.com/jpfielding/boaguard.go/pkg/codes"
	"github.com/jpfielding/boaguard.go/pkg/dcmtime"
	"github.com/jpfielding/boaguard.go/pkg/series"
)

// Coding systems and naming systems
const (
	SystemMeasurements  = "https://uk-essen.de/fhir/CodeSystem/boa/measurements"
	SystemBodySite      = "https://uk-essen.de/fhir/ValueSet/boa/body-site"
	SystemSliceRange    = "https://uk-essen.de/fhir/CodeSystem/boa/slice-range"
	SystemTissues       = "https://uk-essen.de/fhir/ValueSet/boa/tissues"
	SystemBodyStructure = "https://uk-essen.de/fhir/ValueSet/boa/body-structure"
	SystemRunInfo       = "https://uk-essen.de/fhir/CodeSystem/boa/run-info"
	SystemImageID       = "https://uk-essen.de/fhir/sid/boa/image-id"
	SystemAccession     = "https://uk-essen.de/PACS/GE/CentricityPACS"
	SystemDicomUID      = "urn:dicom:uid"
	SystemDCM           = "http://dicom.nema.org/resources/ontology/DCM"
)

// Measurement codes
const (
	CodeBodyStructureVolume = "body-structure-volume"
	CodeReport              = "boa-report"
	CodeSliceRange          = "axial-slice-range"
)

const (
	KindImagingStudy     = "ImagingStudy"
	KindObservation      = "Observation"
	KindDiagnosticReport = "DiagnosticReport"
)

// UnitML is the unit of every volume
const UnitML = "ml"

// absent is the value reported for a structure the segmentation did not find
const absent = json.Number("0.0")

// runInfoCodes maps the run report keys to category codes
var runInfoCodes = map[string]string{
	boa.KeyVersion:       "boa-version",
	boa.KeyGitHash:       "boa-git-hash",
	boa.KeyContrastPhase: "predicted-contrast-phase",
	boa.KeyContrastInGIT: "predicted-contrast-in-git",
}

// Builder turns one folder's inputs into resources
type Builder struct {
	IDs IDGenerator
}

// NewBuilder returns a Builder drawing ids from ids, or from crypto/rand when nil
func NewBuilder(ids IDGenerator) *Builder {
	if ids == nil {
		ids = RandomIDs{}
	}
	return &Builder{IDs: ids}
}

// ImagingStudy summarizes the series with its study, accession and image identifiers
func (b *Builder) ImagingStudy(ts series.TagSet) *ImagingStudy {
	var ids []Identifier
	if ts.StudyInstanceUID != nil {
		ids = append(ids, Identifier{System: SystemDicomUID, Value: "urn:oid:" + *ts.StudyInstanceUID})
	}
	if ts.AccessionNumber != nil {
		ids = append(ids, Identifier{System: SystemAccession, Value: *ts.AccessionNumber})
	}
	if id := imageIdentifier(ts); id != nil {
		ids = append(ids, *id)
	}

	s := ImagingStudySeries{
		UID:               series.Value(ts.SeriesInstanceUID),
		Description:       series.Value(ts.SeriesDescription),
		NumberOfInstances: ts.NumberOfInstances,
	}
	if ts.SeriesNumber != nil {
		if n, err := strconv.Atoi(*ts.SeriesNumber); err == nil {
			s.Number = &n
		}
	}
	if ts.Modality != nil {
		s.Modality = &Coding{System: SystemDCM, Code: *ts.Modality}
	}

	return &ImagingStudy{
		ResourceType:   KindImagingStudy,
		ID:             b.IDs.NewID(),
		Identifier:     ids,
		Status:         "available",
		Subject:        subject(ts),
		Started:        ts.Started,
		NumberOfSeries: 1,
		Series:         []ImagingStudySeries{s},
	}
}

// BodyComposition returns one Observation per table region present in agg, in table order
func (b *Builder) BodyComposition(ts series.TagSet, agg boa.Aggregate, table *codes.Table, mode boa.Mode) []*Observation {
	var out []*Observation
	for _, region := range table.BodyComposition {
		r, ok := agg[region.Key]
		if !ok {
			continue
		}
		site := Concept(SystemBodySite, region.Code)
		components := []ObservationComponent{sliceRange(r)}
		sums := r.Sums(mode)
		for _, tissue := range table.Tissues {
			sum, ok := sums[tissue.Key]
			if !ok {
				continue
			}
			components = append(components, ObservationComponent{
				Code:          Concept(SystemTissues, tissue.Code),
				ValueQuantity: &Quantity{Value: volume(sum.Sum), Unit: UnitML},
			})
		}
		out = append(out, &Observation{
			ResourceType:      KindObservation,
			ID:                b.IDs.NewID(),
			Status:            "preliminary",
			Code:              Concept(SystemMeasurements, mode.Code()),
			Subject:           subject(ts),
			EffectiveDateTime: ts.Effective,
			BodySite:          &site,
			DerivedFrom:       derivedFrom(ts),
			Component:         components,
		})
	}
	return out
}

// BodyStructureVolume returns a single Observation with one component per resolved structure.
// Structures flagged absent report 0.0 whatever their volume.
func (b *Builder) BodyStructureVolume(ts series.TagSet, segs map[string]boa.Segmentation, table *codes.Table) *Observation {
	resolved := codes.NameMapping(table.Structures.Keys(), segs)
	var components []ObservationComponent
	for _, structure := range table.Structures {
		seg, ok := resolved[structure.Key]
		if !ok {
			continue
		}
		value := absent
		if seg.Present {
			value = volume(seg.VolumeML)
		}
		components = append(components, ObservationComponent{
			Code:          Concept(SystemBodyStructure, structure.Code),
			ValueQuantity: &Quantity{Value: value, Unit: UnitML},
		})
	}
	return &Observation{
		ResourceType:      KindObservation,
		ID:                b.IDs.NewID(),
		Status:            "preliminary",
		Code:              Concept(SystemMeasurements, CodeBodyStructureVolume),
		Subject:           subject(ts),
		EffectiveDateTime: ts.Effective,
		DerivedFrom:       derivedFrom(ts),
		Component:         components,
	}
}

// DiagnosticReport ties the study and the observations of the same pass together with the
// run provenance and the attached artifacts
func (b *Builder) DiagnosticReport(ts series.TagSet, info boa.RunInfo, artifacts []boa.Artifact, study *ImagingStudy, results []*Observation) *DiagnosticReport {
	var categories []CodeableConcept
	for _, kv := range info.Pairs() {
		if kv[1] == "" {
			continue
		}
		categories = append(categories, CodeableConcept{
			Coding: []Coding{{System: SystemRunInfo, Code: runInfoCodes[kv[0]], Display: kv[1]}},
		})
	}

	report := &DiagnosticReport{
		ResourceType:      KindDiagnosticReport,
		ID:                b.IDs.NewID(),
		Status:            "preliminary",
		Category:          categories,
		Code:              Concept(SystemMeasurements, CodeReport),
		Subject:           subject(ts),
		EffectiveDateTime: ts.Effective,
	}
	if study != nil {
		report.ImagingStudy = []Reference{Ref(study.ResourceKind(), study.ResourceID())}
	}
	for _, o := range results {
		report.Result = append(report.Result, Ref(o.ResourceKind(), o.ResourceID()))
	}
	for _, a := range artifacts {
		report.PresentedForm = append(report.PresentedForm, Attachment{
			ContentType: a.ContentType,
			Size:        a.Size,
			Hash:        a.SHA1,
			Title:       a.Title,
			Creation:    dcmtime.Format(a.Created),
		})
	}
	return report
}

func sliceRange(r boa.Region) ObservationComponent {
	return ObservationComponent{
		Code: CodeableConcept{Coding: []Coding{{
			System:  SystemSliceRange,
			Code:    CodeSliceRange,
			Display: fmt.Sprintf("%d - %d", r.MinSliceIdx, r.MaxSliceIdx),
		}}},
		ValueRange: &Range{
			Low:  &Quantity{Value: json.Number(strconv.Itoa(r.MinSliceIdx))},
			High: &Quantity{Value: json.Number(strconv.Itoa(r.MaxSliceIdx))},
		},
	}
}

// volume renders ml with two decimals
func volume(ml float64) json.Number {
	return json.Number(strconv.FormatFloat(ml, 'f', 2, 64))
}

func subject(ts series.TagSet) *Reference {
	if ts.PatientID == nil {
		return nil
	}
	ref := Ref("Patient", *ts.PatientID)
	return &ref
}

func imageIdentifier(ts series.TagSet) *Identifier {
	if ts.ImageID == "" || ts.ImageID == dcmtime.Unknown {
		return nil
	}
	return &Identifier{System: SystemImageID, Value: ts.ImageID}
}

func derivedFrom(ts series.TagSet) []Reference {
	id := imageIdentifier(ts)
	if id == nil {
		return nil
	}
	return []Reference{{Type: KindImagingStudy, Identifier: id}}
}
