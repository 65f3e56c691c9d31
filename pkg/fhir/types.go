package fhir

import (
	"encoding/json"
)

// Resource is implemented by every resource the builders produce
type Resource interface {
	ResourceKind() string
	ResourceID() string
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Concept is a CodeableConcept with a single coding
func Concept(system, code string) CodeableConcept {
	return CodeableConcept{Coding: []Coding{{System: system, Code: code}}}
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Reference is either literal (Reference) or logical (Identifier)
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

// Ref is a literal reference to type/id
func Ref(kind, id string) Reference {
	return Reference{Reference: kind + "/" + id}
}

// Quantity keeps its value as a json.Number so the formatted decimal is emitted verbatim
type Quantity struct {
	Value json.Number `json:"value"`
	Unit  string      `json:"unit,omitempty"`
}

type Range struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
}

type Attachment struct {
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Hash        string `json:"hash,omitempty"` // base64 SHA-1
	Title       string `json:"title,omitempty"`
	Creation    string `json:"creation,omitempty"`
}

type ImagingStudy struct {
	ResourceType   string               `json:"resourceType"`
	ID             string               `json:"id"`
	Identifier     []Identifier         `json:"identifier,omitempty"`
	Status         string               `json:"status"`
	Subject        *Reference           `json:"subject,omitempty"`
	Started        string               `json:"started,omitempty"`
	NumberOfSeries int                  `json:"numberOfSeries"`
	Series         []ImagingStudySeries `json:"series"`
}

func (r *ImagingStudy) ResourceKind() string { return r.ResourceType }
func (r *ImagingStudy) ResourceID() string   { return r.ID }

type ImagingStudySeries struct {
	UID               string  `json:"uid,omitempty"`
	Number            *int    `json:"number,omitempty"`
	Modality          *Coding `json:"modality,omitempty"`
	Description       string  `json:"description,omitempty"`
	NumberOfInstances int     `json:"numberOfInstances"`
}

type Observation struct {
	ResourceType      string                 `json:"resourceType"`
	ID                string                 `json:"id"`
	Status            string                 `json:"status"`
	Code              CodeableConcept        `json:"code"`
	Subject           *Reference             `json:"subject,omitempty"`
	EffectiveDateTime string                 `json:"effectiveDateTime,omitempty"`
	BodySite          *CodeableConcept       `json:"bodySite,omitempty"`
	DerivedFrom       []Reference            `json:"derivedFrom,omitempty"`
	Component         []ObservationComponent `json:"component,omitempty"`
}

func (r *Observation) ResourceKind() string { return r.ResourceType }
func (r *Observation) ResourceID() string   { return r.ID }

type ObservationComponent struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
	ValueRange    *Range          `json:"valueRange,omitempty"`
}

type DiagnosticReport struct {
	ResourceType      string            `json:"resourceType"`
	ID                string            `json:"id"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              CodeableConcept   `json:"code"`
	Subject           *Reference        `json:"subject,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	ImagingStudy      []Reference       `json:"imagingStudy,omitempty"`
	Result            []Reference       `json:"result,omitempty"`
	PresentedForm     []Attachment      `json:"presentedForm,omitempty"`
}

func (r *DiagnosticReport) ResourceKind() string { return r.ResourceType }
func (r *DiagnosticReport) ResourceID() string   { return r.ID }

// OperationOutcome is what a server returns alongside a failed request
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
	Expression  []string         `json:"expression,omitempty"`
}
