// Package dcm builds and writes DICOM datasets.
//
// It is the write half of the toolkit: the sample generator and the test fixtures use it to
// lay down series that the header extractor in pkg/series then reads back.
//
//	ds, err := dcm.NewDataset(
//		dcm.WithFileMeta(dcm.CTImageStorageUID, uid, dcm.ExplicitVRLittleEndian),
//		dcm.WithElement(tag.PatientID, "P1"),
//	)
//	_, err = dcm.WriteFile("/tmp/slice-0001.dcm", ds)
package dcm

import (
	"github.com/jpfielding/boaguard.go/pkg/dcm/tag"
)

// Transfer syntax and SOP class UIDs used by the writer
const (
	ExplicitVRLittleEndian = "1.2.840.10008.1.2.1"
	CTImageStorageUID      = "1.2.840.10008.5.1.4.1.1.2"
	ImplementationClassUID = "1.2.826.0.1.3680043.8.498.1"
	ImplementationVersion  = "BOAGUARD"
)

// Tag alias to avoid duplication
type Tag = tag.Tag

// Dataset represents a complete DICOM dataset
type Dataset struct {
	Elements map[Tag]*Element
}

// Element represents a single DICOM element
type Element struct {
	Tag   Tag
	VR    string      // Value Representation
	Value interface{} // string, []string, uint16, []uint16, int, []byte or *PixelData
}

// PixelData holds native (uncompressed) frames
type PixelData struct {
	Frames [][]uint16
}

// FindElement returns an element by tag
func (ds *Dataset) FindElement(t Tag) (*Element, bool) {
	elem, ok := ds.Elements[t]
	return elem, ok
}

// GetString returns a string value from an element
func (elem *Element) GetString() (string, bool) {
	if s, ok := elem.Value.(string); ok {
		return s, true
	}
	return "", false
}

// Option configures a Dataset during construction
type Option func(*Dataset) error

// NewDataset creates a Dataset with the given options
func NewDataset(opts ...Option) (*Dataset, error) {
	ds := &Dataset{Elements: make(map[Tag]*Element)}
	for _, opt := range opts {
		if err := opt(ds); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// WithElement adds a single element to the dataset. Empty strings are skipped so that
// optional attributes can be passed through unconditionally.
func WithElement(t tag.Tag, value interface{}) Option {
	return func(ds *Dataset) error {
		if s, ok := value.(string); ok && s == "" {
			return nil
		}
		ds.Elements[t] = &Element{
			Tag:   t,
			VR:    GetVR(t),
			Value: value,
		}
		return nil
	}
}

// WithFileMeta adds standard file meta information elements
func WithFileMeta(sopClassUID, sopInstanceUID, transferSyntax string) Option {
	return func(ds *Dataset) error {
		opts := []Option{
			WithElement(tag.FileMetaInformationVersion, []byte{0x00, 0x01}),
			WithElement(tag.MediaStorageSOPClassUID, sopClassUID),
			WithElement(tag.MediaStorageSOPInstanceUID, sopInstanceUID),
			WithElement(tag.TransferSyntaxUID, transferSyntax),
			WithElement(tag.ImplementationClassUID, ImplementationClassUID),
			WithElement(tag.ImplementationVersionName, ImplementationVersion),
			WithElement(tag.SOPClassUID, sopClassUID),
			WithElement(tag.SOPInstanceUID, sopInstanceUID),
		}
		for _, opt := range opts {
			if err := opt(ds); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithPixelData adds native 16-bit pixel data with matching image pixel attributes
func WithPixelData(rows, cols int, frames ...[]uint16) Option {
	return func(ds *Dataset) error {
		if len(frames) == 0 {
			return nil
		}
		for _, opt := range []Option{
			WithElement(tag.Rows, uint16(rows)),
			WithElement(tag.Columns, uint16(cols)),
			WithElement(tag.BitsAllocated, uint16(16)),
		} {
			if err := opt(ds); err != nil {
				return err
			}
		}
		ds.Elements[tag.PixelData] = &Element{
			Tag:   tag.PixelData,
			VR:    "OW",
			Value: &PixelData{Frames: frames},
		}
		return nil
	}
}

// GetVR returns the Value Representation (VR) for a known tag
func GetVR(t tag.Tag) string {
	switch t {
	case tag.FileMetaInformationGroupLength:
		return "UL"
	case tag.FileMetaInformationVersion:
		return "OB"
	case tag.ImplementationVersionName:
		return "SH"
	}
	if t.IsGroup0002() {
		return "UI"
	}

	switch t {
	case tag.SpecificCharacterSet:
		return "CS"
	case tag.SOPClassUID, tag.SOPInstanceUID:
		return "UI"

	case tag.PatientName:
		return "PN"
	case tag.PatientID:
		return "LO"

	case tag.StudyDate, tag.AcquisitionDate:
		return "DA"
	case tag.StudyTime, tag.AcquisitionTime:
		return "TM"
	case tag.AccessionNumber, tag.StudyID, tag.TimezoneOffsetFromUTC:
		return "SH"
	case tag.StudyDescription, tag.SeriesDescription:
		return "LO"
	case tag.StudyInstanceUID, tag.SeriesInstanceUID:
		return "UI"

	case tag.Modality:
		return "CS"
	case tag.SeriesNumber, tag.InstanceNumber, tag.NumberOfFrames:
		return "IS"

	case tag.Rows, tag.Columns, tag.BitsAllocated:
		return "US"
	case tag.PixelData:
		return "OW"
	}

	return "UN"
}
