package boa

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// InfoSheet is the run report sheet holding key/value provenance rows
const InfoSheet = "info"

// ErrNoInfoSheet is returned when the workbook lacks the info sheet
var ErrNoInfoSheet = errors.New("run report has no \"info\" sheet")

// Row keys of the info sheet
const (
	KeyVersion       = "BOAVersion"
	KeyGitHash       = "BOAGitHash"
	KeyContrastPhase = "PredictedContrastPhase"
	KeyContrastInGIT = "PredictedContrastInGIT"
)

// RunInfo is the provenance of the BOA run that produced a folder
type RunInfo struct {
	Version       string
	GitHash       string
	ContrastPhase string
	ContrastInGIT string
}

// Pairs returns the provenance in report order
func (ri RunInfo) Pairs() [][2]string {
	return [][2]string{
		{KeyVersion, ri.Version},
		{KeyGitHash, ri.GitHash},
		{KeyContrastPhase, ri.ContrastPhase},
		{KeyContrastInGIT, ri.ContrastInGIT},
	}
}

// LoadRunInfo reads the info sheet of the workbook. Rows other than the four provenance keys
// are ignored; missing rows leave the field empty.
func LoadRunInfo(path string) (RunInfo, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return RunInfo{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if !slices.Contains(f.GetSheetList(), InfoSheet) {
		return RunInfo{}, fmt.Errorf("%s: %w", path, ErrNoInfoSheet)
	}
	rows, err := f.GetRows(InfoSheet)
	if err != nil {
		return RunInfo{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var ri RunInfo
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		value := strings.TrimSpace(row[1])
		switch strings.TrimSpace(row[0]) {
		case KeyVersion:
			ri.Version = value
		case KeyGitHash:
			ri.GitHash = value
		case KeyContrastPhase:
			ri.ContrastPhase = value
		case KeyContrastInGIT:
			ri.ContrastInGIT = value
		}
	}
	return ri, nil
}

// WriteRunInfo writes a workbook whose only sheet is the info sheet
func WriteRunInfo(path string, ri RunInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InfoSheet); err != nil {
		return err
	}
	for i, kv := range ri.Pairs() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(InfoSheet, cell, &[]interface{}{kv[0], kv[1]}); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
