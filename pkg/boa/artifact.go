package boa

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Content types of the attached artifacts
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
	ContentTypeJSON = "application/json"
)

// Artifact describes a file attached to the diagnostic report
type Artifact struct {
	Path        string
	Title       string
	ContentType string
	Size        int64
	SHA1        string // base64
	Created     time.Time
}

// ContentType guesses the artifact content type from the file extension
func ContentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ContentTypeXLSX
	case ".pdf":
		return ContentTypePDF
	case ".json":
		return ContentTypeJSON
	}
	return "application/octet-stream"
}

// DescribeArtifact hashes and sizes the file. The creation timestamp is the modification time.
func DescribeArtifact(path, contentType string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Artifact{}, err
	}
	h := sha1.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return Artifact{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return Artifact{
		Path:        path,
		Title:       filepath.Base(path),
		ContentType: contentType,
		Size:        n,
		SHA1:        base64.StdEncoding.EncodeToString(h.Sum(nil)),
		Created:     info.ModTime().UTC(),
	}, nil
}

// FolderArtifacts describes the run reports, rendered reports and source measurement files of
// a patient folder, in that order
func FolderArtifacts(dir string) ([]Artifact, error) {
	paths, err := RunReports(dir)
	if err != nil {
		return nil, err
	}
	pdfs, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(pdfs)
	paths = append(paths, pdfs...)
	paths = append(paths,
		filepath.Join(dir, BodyCompositionFile),
		filepath.Join(dir, SegmentationFile),
	)

	out := make([]Artifact, 0, len(paths))
	for _, p := range paths {
		a, err := DescribeArtifact(p, ContentType(p))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// IsRunReport reports whether name is an Excel workbook, ignoring Excel's ~$ lock files
func IsRunReport(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx") && !strings.HasPrefix(name, "~$")
}

// RunReports lists the run report workbooks directly in dir, sorted
func RunReports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && IsRunReport(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
