// Package pipeline drives resource synthesis across BOA patient folders.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jpfielding/boaguard.go/pkg/boa"
	"github.com/jpfielding/boaguard.go/pkg/codes"
	"github.com/jpfielding/boaguard.go/pkg/fhir"
	"github.com/jpfielding/boaguard.go/pkg/logging"
	"github.com/jpfielding/boaguard.go/pkg/series"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingInput marks a folder lacking its measurement files or DICOM directory
	ErrMissingInput = errors.New("missing input")
	// ErrNoImaging marks a folder whose DICOM directory yielded no readable header
	ErrNoImaging = errors.New("no imaging metadata")
)

// Discover returns every directory under root holding a run report (*.xlsx), sorted.
// Unreadable directories below root are logged and skipped.
func Discover(root string, log *slog.Logger) ([]string, error) {
	seen := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("skipping unreadable path", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !boa.IsRunReport(d.Name()) {
			return nil
		}
		seen[filepath.Dir(path)] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Synthesizer builds the resources of patient folders
type Synthesizer struct {
	Table   *codes.Table
	Builder *fhir.Builder
	Log     *slog.Logger
}

// NewSynthesizer uses the default code table and random ids
func NewSynthesizer(log *slog.Logger) *Synthesizer {
	return &Synthesizer{
		Table:   codes.Default(),
		Builder: fhir.NewBuilder(nil),
		Log:     log,
	}
}

// Folder reads one patient folder and returns its resources. Errors wrap ErrMissingInput or
// ErrNoImaging when the folder cannot be synthesized; nothing is returned for such a folder.
func (s *Synthesizer) Folder(ctx context.Context, dir string) ([]fhir.Resource, error) {
	in, err := s.read(ctx, dir)
	if err != nil {
		return nil, err
	}
	return s.Builder.Build(in, s.Table), nil
}

func (s *Synthesizer) read(ctx context.Context, dir string) (fhir.Inputs, error) {
	bcaPath := filepath.Join(dir, boa.BodyCompositionFile)
	totalPath := filepath.Join(dir, boa.SegmentationFile)
	dicomDir := filepath.Join(dir, boa.DicomDir)

	for _, p := range []string{bcaPath, totalPath} {
		if !isFile(p) {
			return fhir.Inputs{}, fmt.Errorf("%w: %s is missing in %s", ErrMissingInput, filepath.Base(p), dir)
		}
	}
	if info, err := os.Stat(dicomDir); err != nil || !info.IsDir() {
		return fhir.Inputs{}, fmt.Errorf("%w: %s/ is missing in %s", ErrMissingInput, boa.DicomDir, dir)
	}

	agg, err := boa.LoadBodyComposition(bcaPath)
	if err != nil {
		return fhir.Inputs{}, err
	}
	segs, err := boa.LoadSegmentations(totalPath)
	if err != nil {
		return fhir.Inputs{}, err
	}

	log := s.Log.With(slog.String("folder", dir))
	tags, err := series.Extract(dicomDir, log)
	if err != nil {
		return fhir.Inputs{}, err
	}
	if tags.Empty() {
		return fhir.Inputs{}, fmt.Errorf("%w: no readable dicom in %s", ErrNoImaging, dicomDir)
	}

	var info boa.RunInfo
	reports, err := boa.RunReports(dir)
	if err != nil {
		return fhir.Inputs{}, err
	}
	if len(reports) > 0 {
		if info, err = boa.LoadRunInfo(reports[0]); err != nil {
			log.WarnContext(ctx, "run report unreadable, provenance left out", slog.Any("error", err))
		}
	}

	artifacts, err := boa.FolderArtifacts(dir)
	if err != nil {
		return fhir.Inputs{}, err
	}

	return fhir.Inputs{
		Tags:          tags,
		Composition:   agg,
		Segmentations: segs,
		RunInfo:       info,
		Artifacts:     artifacts,
	}, nil
}

// Run synthesizes the folders with at most workers in flight. A folder that fails is logged
// and skipped; the others are returned in folder order. Only cancellation of ctx is an error.
func (s *Synthesizer) Run(ctx context.Context, folders []string, workers int) ([]fhir.Resource, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([][]fhir.Resource, len(folders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, dir := range folders {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fctx := logging.AppendCtx(gctx, slog.String("folder", dir))
			res, err := s.Folder(fctx, dir)
			if err != nil {
				s.Log.WarnContext(fctx, "skipping folder", slog.Any("error", err))
				return nil
			}
			s.Log.DebugContext(fctx, "synthesized folder", slog.Int("resources", len(res)))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []fhir.Resource
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
