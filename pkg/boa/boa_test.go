package boa

import (
	"crypto/sha1"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadBodyComposition(t *testing.T) {
	p := writeFile(t, t.TempDir(), BodyCompositionFile, `{
		"aggregated": {
			"pericardium": {
				"min_slice_idx": 10,
				"max_slice_idx": 42,
				"measurements": {"vat": {"sum": 12.345}},
				"measurements_no_extremities": {"vat": {"sum": 11.0}, "sat": {"sum": 2.5}}
			}
		}
	}`)
	agg, err := LoadBodyComposition(p)
	require.NoError(t, err)
	require.Contains(t, agg, "pericardium")

	r := agg["pericardium"]
	assert.Equal(t, 10, r.MinSliceIdx)
	assert.Equal(t, 42, r.MaxSliceIdx)
	assert.InDelta(t, 12.345, r.Sums(AllTissue)["vat"].Sum, 1e-9)
	assert.Len(t, r.Sums(NoExtremities), 2)
}

func TestLoadBodyComposition_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadBodyComposition(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadBodyComposition(writeFile(t, dir, "bad.json", `{`))
	assert.Error(t, err)

	_, err = LoadBodyComposition(writeFile(t, dir, "empty.json", `{}`))
	assert.Error(t, err)
}

func TestLoadSegmentations(t *testing.T) {
	p := writeFile(t, t.TempDir(), SegmentationFile, `{
		"segmentations": {"total": {
			"gluteus_maximus_left": {"volume_ml": 5.0, "present": true},
			"spleen": {"volume_ml": 3.2, "present": false}
		}}
	}`)
	segs, err := LoadSegmentations(p)
	require.NoError(t, err)
	assert.Equal(t, Segmentation{VolumeML: 5.0, Present: true}, segs["gluteus_maximus_left"])
	assert.False(t, segs["spleen"].Present)
}

func TestMode(t *testing.T) {
	assert.Equal(t, "measurements", AllTissue.Key())
	assert.Equal(t, "volume-unfiltered", AllTissue.Code())
	assert.Equal(t, "measurements_no_extremities", NoExtremities.Key())
	assert.Equal(t, "volume-filtered", NoExtremities.Code())
}

func TestRunInfo_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "report.xlsx")
	want := RunInfo{Version: "1.4.0", GitHash: "abc123", ContrastPhase: "VENOUS", ContrastInGIT: "NO_CONTRAST"}
	require.NoError(t, WriteRunInfo(p, want))

	got, err := LoadRunInfo(p)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRunInfo_MissingRows(t *testing.T) {
	p := filepath.Join(t.TempDir(), "partial.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", InfoSheet))
	require.NoError(t, f.SetCellValue(InfoSheet, "A1", KeyVersion))
	require.NoError(t, f.SetCellValue(InfoSheet, "B1", "2.0"))
	require.NoError(t, f.SetCellValue(InfoSheet, "A2", "Unrelated"))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	got, err := LoadRunInfo(p)
	require.NoError(t, err)
	assert.Equal(t, RunInfo{Version: "2.0"}, got)
}

func TestLoadRunInfo_NoInfoSheet(t *testing.T) {
	p := filepath.Join(t.TempDir(), "other.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	_, err := LoadRunInfo(p)
	assert.ErrorIs(t, err, ErrNoInfoSheet)
}

func TestDescribeArtifact(t *testing.T) {
	p := writeFile(t, t.TempDir(), "report.pdf", "%PDF-1.4")
	a, err := DescribeArtifact(p, ContentType(p))
	require.NoError(t, err)

	sum := sha1.Sum([]byte("%PDF-1.4"))
	assert.Equal(t, "report.pdf", a.Title)
	assert.Equal(t, ContentTypePDF, a.ContentType)
	assert.Equal(t, int64(8), a.Size)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), a.SHA1)
	assert.False(t, a.Created.IsZero())
}

func TestFolderArtifacts_Order(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BodyCompositionFile, "{}")
	writeFile(t, dir, SegmentationFile, "{}")
	writeFile(t, dir, "b.pdf", "pdf")
	writeFile(t, dir, "a.xlsx", "xlsx")
	writeFile(t, dir, "~$a.xlsx", "lock")

	arts, err := FolderArtifacts(dir)
	require.NoError(t, err)
	var titles []string
	for _, a := range arts {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"a.xlsx", "b.pdf", BodyCompositionFile, SegmentationFile}, titles)
	assert.Equal(t, ContentTypeXLSX, arts[0].ContentType)
	assert.Equal(t, ContentTypeJSON, arts[2].ContentType)
}

func TestIsRunReport(t *testing.T) {
	assert.True(t, IsRunReport("report.xlsx"))
	assert.True(t, IsRunReport("REPORT.XLSX"))
	assert.False(t, IsRunReport("~$report.xlsx"))
	assert.False(t, IsRunReport("report.pdf"))
}

func TestFolderArtifacts_MissingJSON(t *testing.T) {
	_, err := FolderArtifacts(t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
