// Package tag defines the DICOM tags written by the sample and fixture datasets
package tag

import (
	"encoding/json"
	"fmt"
)

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// Less orders tags by group then element, the order required on the wire
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// String returns a string representation of the Tag (GGGG,EEEE)
func (t Tag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
	SpecificCharacterSet           = Tag{0x0008, 0x0005}
)

// SOP Common Module
var (
	SOPClassUID    = Tag{0x0008, 0x0016}
	SOPInstanceUID = Tag{0x0008, 0x0018}
)

// Patient Module
var (
	PatientName = Tag{0x0010, 0x0010}
	PatientID   = Tag{0x0010, 0x0020}
)

// General Study Module
var (
	StudyDate             = Tag{0x0008, 0x0020}
	StudyTime             = Tag{0x0008, 0x0030}
	AccessionNumber       = Tag{0x0008, 0x0050}
	StudyDescription      = Tag{0x0008, 0x1030}
	StudyInstanceUID      = Tag{0x0020, 0x000D}
	StudyID               = Tag{0x0020, 0x0010}
	TimezoneOffsetFromUTC = Tag{0x0008, 0x0201}
)

// General Series / Image Modules
var (
	AcquisitionDate   = Tag{0x0008, 0x0022}
	AcquisitionTime   = Tag{0x0008, 0x0032}
	Modality          = Tag{0x0008, 0x0060}
	SeriesDescription = Tag{0x0008, 0x103E}
	SeriesInstanceUID = Tag{0x0020, 0x000E}
	SeriesNumber      = Tag{0x0020, 0x0011}
	InstanceNumber    = Tag{0x0020, 0x0013}
	NumberOfFrames    = Tag{0x0028, 0x0008}
)

// Image Pixel Module
var (
	Rows          = Tag{0x0028, 0x0010}
	Columns       = Tag{0x0028, 0x0011}
	BitsAllocated = Tag{0x0028, 0x0100}
	PixelData     = Tag{0x7FE0, 0x0010}
)

// LookupName returns a human-readable name for the tags above
func (t Tag) LookupName() string {
	switch t {
	case PatientID:
		return "PatientID"
	case StudyInstanceUID:
		return "StudyInstanceUID"
	case SeriesInstanceUID:
		return "SeriesInstanceUID"
	case AccessionNumber:
		return "AccessionNumber"
	case Modality:
		return "Modality"
	case TimezoneOffsetFromUTC:
		return "TimezoneOffsetFromUTC"
	case NumberOfFrames:
		return "NumberOfFrames"
	case TransferSyntaxUID:
		return "TransferSyntaxUID"
	case SOPClassUID:
		return "SOPClassUID"
	default:
		return ""
	}
}
