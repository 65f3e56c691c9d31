package fhir

import (
	"github.com/jpfielding/boaguard.go/pkg/boa"
	"github.com/jpfielding/boaguard.go/pkg/codes"
	"github.com/jpfielding/boaguard.go/pkg/series"
)

// Inputs is everything read from one patient folder
type Inputs struct {
	Tags          series.TagSet
	Composition   boa.Aggregate
	Segmentations map[string]boa.Segmentation
	RunInfo       boa.RunInfo
	Artifacts     []boa.Artifact
}

// Build runs every builder over one folder and returns the resources in submission order:
// the study, the all-tissue and the extremity-free composition observations, the structure
// volumes and last the report referencing all of them.
func (b *Builder) Build(in Inputs, table *codes.Table) []Resource {
	if table == nil {
		table = codes.Default()
	}
	study := b.ImagingStudy(in.Tags)

	var observations []*Observation
	observations = append(observations, b.BodyComposition(in.Tags, in.Composition, table, boa.AllTissue)...)
	observations = append(observations, b.BodyComposition(in.Tags, in.Composition, table, boa.NoExtremities)...)
	observations = append(observations, b.BodyStructureVolume(in.Tags, in.Segmentations, table))

	report := b.DiagnosticReport(in.Tags, in.RunInfo, in.Artifacts, study, observations)

	out := make([]Resource, 0, len(observations)+2)
	out = append(out, study)
	for _, o := range observations {
		out = append(out, o)
	}
	return append(out, report)
}
