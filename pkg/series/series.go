// Package series reduces a directory of DICOM slices to the tag set the resource builders need.
package series

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jpfielding/boaguard.go/pkg/dcmtime"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// timezoneOffsetFromUTC is (0008,0201)
var timezoneOffsetFromUTC = tag.Tag{Group: 0x0008, Element: 0x0201}

// TagSet is the header summary of one series. Nil fields were absent or unreadable.
type TagSet struct {
	StudyInstanceUID      *string `json:"StudyInstanceUID"`
	SeriesInstanceUID     *string `json:"SeriesInstanceUID"`
	PatientID             *string `json:"PatientID"`
	AccessionNumber       *string `json:"AccessionNumber"`
	Modality              *string `json:"Modality"`
	SeriesDescription     *string `json:"SeriesDescription"`
	SeriesNumber          *string `json:"SeriesNumber"`
	TimezoneOffsetFromUTC *string `json:"TimezoneOffsetFromUTC"`
	StudyDate             *string `json:"StudyDate"`
	StudyTime             *string `json:"StudyTime"`
	AcquisitionDate       *string `json:"AcquisitionDate"`
	AcquisitionTime       *string `json:"AcquisitionTime"`

	ImageID           string `json:"ImageID"`
	Started           string `json:"Started"`
	Effective         string `json:"Effective"`
	NumberOfInstances int    `json:"NumberOfInstances"`

	files int
}

// Empty reports whether no DICOM file could be read
func (ts TagSet) Empty() bool {
	return ts.files == 0
}

// Files is the number of headers that were parsed
func (ts TagSet) Files() int {
	return ts.files
}

// ImageID is the hex SHA-256 of "{study}_{series}"
func ImageID(study, series string) string {
	sum := sha256.Sum256([]byte(study + "_" + series))
	return hex.EncodeToString(sum[:])
}

// Value dereferences an optional field, returning "" for unknown
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Extract reads every *.dcm header in dir. Unparseable files are logged and skipped; if none
// parse the returned TagSet is Empty.
func Extract(dir string, log *slog.Logger) (TagSet, error) {
	if _, err := os.Stat(dir); err != nil {
		return TagSet{}, fmt.Errorf("reading %s: %w", dir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.dcm"))
	if err != nil {
		return TagSet{}, fmt.Errorf("listing %s: %w", dir, err)
	}
	sort.Strings(paths)

	var headers []dicom.Dataset
	for _, p := range paths {
		ds, err := readHeader(p)
		if err != nil {
			log.Warn("skipping unreadable dicom", slog.String("file", p), slog.Any("error", err))
			continue
		}
		headers = append(headers, ds)
	}
	if len(headers) == 0 {
		return TagSet{}, nil
	}
	return summarize(headers, log), nil
}

func readHeader(path string) (dicom.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dicom.Dataset{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return dicom.Dataset{}, err
	}
	return dicom.Parse(f, info.Size(), nil, dicom.SkipPixelData())
}

func summarize(headers []dicom.Dataset, log *slog.Logger) TagSet {
	first := headers[0]
	ts := TagSet{
		StudyInstanceUID:      stringValue(first, tag.StudyInstanceUID),
		SeriesInstanceUID:     stringValue(first, tag.SeriesInstanceUID),
		PatientID:             stringValue(first, tag.PatientID),
		AccessionNumber:       stringValue(first, tag.AccessionNumber),
		Modality:              stringValue(first, tag.Modality),
		SeriesDescription:     stringValue(first, tag.SeriesDescription),
		SeriesNumber:          stringValue(first, tag.SeriesNumber),
		TimezoneOffsetFromUTC: stringValue(first, timezoneOffsetFromUTC),
		StudyDate:             stringValue(first, tag.StudyDate),
		StudyTime:             stringValue(first, tag.StudyTime),
		AcquisitionDate:       stringValue(first, tag.AcquisitionDate),
		AcquisitionTime:       stringValue(first, tag.AcquisitionTime),
		files:                 len(headers),
	}
	if ts.AccessionNumber == nil {
		ts.AccessionNumber = stringValue(first, tag.StudyID)
	}

	ts.ImageID = dcmtime.Unknown
	if ts.StudyInstanceUID != nil && ts.SeriesInstanceUID != nil {
		ts.ImageID = ImageID(*ts.StudyInstanceUID, *ts.SeriesInstanceUID)
	}

	offset := Value(ts.TimezoneOffsetFromUTC)
	ts.Started = normalize(log, "StudyDate", Value(ts.StudyDate), Value(ts.StudyTime), offset)
	ts.Effective = normalize(log, "AcquisitionDate", Value(ts.AcquisitionDate), Value(ts.AcquisitionTime), offset)

	ts.NumberOfInstances = 1
	if ts.SeriesInstanceUID != nil {
		n := 0
		for _, h := range headers {
			if uid := stringValue(h, tag.SeriesInstanceUID); uid != nil && *uid == *ts.SeriesInstanceUID {
				n++
			}
		}
		ts.NumberOfInstances = n
	}
	if ts.NumberOfInstances == 1 {
		if frames := stringValue(first, tag.NumberOfFrames); frames != nil {
			if n, err := strconv.Atoi(*frames); err == nil && n > 0 {
				ts.NumberOfInstances = n
			}
		}
	}
	return ts
}

func normalize(log *slog.Logger, field, date, tm, offset string) string {
	s, err := dcmtime.FHIR(date, tm, offset)
	if err != nil {
		log.Warn("malformed dicom datetime", slog.String("field", field), slog.Any("error", err))
		return dcmtime.Unknown
	}
	return s
}

// stringValue returns the first value of t rendered as text, or nil when absent or empty
func stringValue(ds dicom.Dataset, t tag.Tag) *string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil || elem.Value == nil {
		return nil
	}
	var s string
	switch v := elem.Value.GetValue().(type) {
	case []string:
		if len(v) == 0 {
			return nil
		}
		s = v[0]
	case []int:
		if len(v) == 0 {
			return nil
		}
		s = strconv.Itoa(v[0])
	case []float64:
		if len(v) == 0 {
			return nil
		}
		s = strconv.FormatFloat(v[0], 'f', -1, 64)
	default:
		return nil
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}
