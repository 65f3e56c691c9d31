package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jpfielding/boaguard.go/pkg/fhir"
	"github.com/jpfielding/boaguard.go/pkg/pipeline"
	"github.com/spf13/cobra"
)

// NewBundlesCmd synthesizes the resources of every patient folder below the BOA folder
func NewBundlesCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "Generate FHIR bundles",
		Long:  "Reads every BOA patient folder (any folder holding an .xlsx run report) and writes the FHIR resources to fhir-bundles.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fhirDir, _ := cmd.Flags().GetString("fhir-folder")
			if fhirDir == "" {
				return fmt.Errorf("--fhir-folder is required")
			}
			boaDir, err := existingDir(cmd, "boa-folder")
			if err != nil {
				return err
			}
			workers, _ := cmd.Flags().GetInt("workers")
			return runBundles(ctx, slog.Default(), fhirDir, boaDir, workers)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("fhir-folder", "f", "", "Path to the FHIR bundles / transactions folder")
	pf.StringP("boa-folder", "b", "", "Path to the BOA folder")
	pf.Int("workers", runtime.NumCPU(), "patient folders processed in parallel")
	return cmd
}

func runBundles(ctx context.Context, log *slog.Logger, fhirDir, boaDir string, workers int) error {
	folders, err := pipeline.Discover(boaDir, log)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "discovered patient folders", slog.Int("count", len(folders)))

	resources, err := pipeline.NewSynthesizer(log).Run(ctx, folders, workers)
	if err != nil {
		return err
	}
	if resources == nil {
		resources = []fhir.Resource{}
	}

	if err := os.MkdirAll(fhirDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(fhirDir, BundlesFile)
	if err := writeJSON(out, resources); err != nil {
		return err
	}
	log.InfoContext(ctx, "Successfully created FHIR bundles", slog.String("file", out), slog.Int("resources", len(resources)))
	return nil
}

// NewTxCmd wraps fhir-bundles.json into a transaction bundle
func NewTxCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Create FHIR transactions",
		Long:  "Wraps the resources of fhir-bundles.json into a transaction Bundle written to transaction_bundles.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fhirDir, err := existingDir(cmd, "fhir-folder")
			if err != nil {
				return err
			}
			return runTx(ctx, slog.Default(), fhirDir)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("fhir-folder", "f", "", "Path to the FHIR bundles / transactions folder")
	return cmd
}

func runTx(ctx context.Context, log *slog.Logger, fhirDir string) error {
	in := filepath.Join(fhirDir, BundlesFile)
	b, err := os.ReadFile(in)
	if errors.Is(err, fs.ErrNotExist) {
		log.WarnContext(ctx, "FHIR bundles are missing, run `boaguard bundles -f FHIR_FOLDER -b BOA_FOLDER` first", slog.String("folder", fhirDir))
		return nil
	}
	if err != nil {
		return err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return fmt.Errorf("decoding %s: %w", in, err)
	}
	bundle, err := fhir.TransactionFromRaw(raws, fhir.RandomIDs{})
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	out := filepath.Join(fhirDir, TransactionsFile)
	if err := writeJSON(out, bundle); err != nil {
		return err
	}
	log.InfoContext(ctx, "Successfully created FHIR transactions", slog.String("file", out), slog.Int("entries", len(bundle.Entry)))
	return nil
}
