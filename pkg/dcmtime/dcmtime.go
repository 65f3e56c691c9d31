// Package dcmtime turns DICOM DA/TM/offset strings into a single zone-aware instant.
//
// DICOM stores the acquisition clock as separate date (YYYYMMDD), time (HHMMSS.ffffff) and
// optional TimezoneOffsetFromUTC (±HHMM) attributes. Without an offset the scanner's local
// zone is assumed, which for the BOA deployment is Europe/Berlin, so daylight saving is
// applied by zone rules instead of a fixed offset.
package dcmtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Berlin must resolve on hosts without zoneinfo
)

// Unknown is emitted in place of a datetime when the DICOM date is absent.
// Consumers must not interpret it clinically.
const Unknown = "TODO"

// DefaultZone is used whenever no well formed offset is present
const DefaultZone = "Europe/Berlin"

// ErrNoDate is returned by Parse for an empty date
var ErrNoDate = errors.New("dicom date is empty")

var defaultLocation = mustLoad(DefaultZone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading %s: %v", name, err))
	}
	return loc
}

// FHIR returns the ISO-8601 rendering of the DICOM date/time/offset, or Unknown when the
// date is empty
func FHIR(date, tm, offset string) (string, error) {
	if date == "" {
		return Unknown, nil
	}
	t, err := Parse(date, tm, offset)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// Parse combines a DA, an optional TM and an optional offset into one instant
func Parse(date, tm, offset string) (time.Time, error) {
	if date == "" {
		return time.Time{}, ErrNoDate
	}
	year, month, day, err := parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, second, micro, err := parseTime(tm)
	if err != nil {
		return time.Time{}, err
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, micro*1000, Location(offset))
	if t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		// the wall clock falls in a spring-forward gap: keep it under the offset in force
		// before the transition
		name, off := t.Add(-time.Hour).Zone()
		t = time.Date(year, time.Month(month), day, hour, minute, second, micro*1000, time.FixedZone(name, off))
	}
	return t, nil
}

// Location returns a fixed zone for a well formed ±HHMM offset and DefaultZone otherwise
func Location(offset string) *time.Location {
	if len(offset) != 5 || (offset[0] != '+' && offset[0] != '-') {
		return defaultLocation
	}
	hours, err := digits(offset[1:3])
	if err != nil {
		return defaultLocation
	}
	minutes, err := digits(offset[3:5])
	if err != nil {
		return defaultLocation
	}
	total := hours*60 + minutes
	if offset[0] == '-' {
		total = -total
	}
	return time.FixedZone(offset, total*60)
}

// Format renders t like 2024-03-05T10:15:30+01:00, adding microseconds only when non-zero
func Format(t time.Time) string {
	if t.Nanosecond()/1000 != 0 {
		return t.Format("2006-01-02T15:04:05.000000-07:00")
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}

func parseDate(s string) (year, month, day int, err error) {
	if len(s) != 8 {
		return 0, 0, 0, fmt.Errorf("dicom date %q: want YYYYMMDD", s)
	}
	if year, err = digits(s[0:4]); err != nil {
		return 0, 0, 0, fmt.Errorf("dicom date %q: %w", s, err)
	}
	if month, err = digits(s[4:6]); err != nil {
		return 0, 0, 0, fmt.Errorf("dicom date %q: %w", s, err)
	}
	if day, err = digits(s[6:8]); err != nil {
		return 0, 0, 0, fmt.Errorf("dicom date %q: %w", s, err)
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return 0, 0, 0, fmt.Errorf("dicom date %q: out of range", s)
	}
	return year, month, day, nil
}

// parseTime reads HH, MM and SS from fixed positions; missing trailing fields are zero
func parseTime(s string) (hour, minute, second, micro int, err error) {
	if s == "" {
		return 0, 0, 0, 0, nil
	}
	clock, frac, _ := strings.Cut(s, ".")
	fields := []*int{&hour, &minute, &second}
	for i, f := range fields {
		if len(clock) < (i+1)*2 {
			break
		}
		if *f, err = digits(clock[i*2 : i*2+2]); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("dicom time %q: %w", s, err)
		}
	}
	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, 0, fmt.Errorf("dicom time %q: out of range", s)
	}
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		frac += strings.Repeat("0", 6-len(frac))
		if micro, err = digits(frac); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("dicom time %q: %w", s, err)
		}
	}
	return hour, minute, second, micro, nil
}

func digits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not numeric", s)
		}
	}
	return strconv.Atoi(s)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
