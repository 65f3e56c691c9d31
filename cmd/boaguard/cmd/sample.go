package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jpfielding/boaguard.go/pkg/sample"
	"github.com/spf13/cobra"
)

// NewSampleCmd writes synthetic patient folders
func NewSampleCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a synthetic BOA folder",
		Long:  "Writes measurement JSON, a run report and a small CT series per patient, enough to run bundles/tx end to end.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			slices, _ := cmd.Flags().GetInt("slices")
			patient, _ := cmd.Flags().GetString("patient")
			count, _ := cmd.Flags().GetInt("count")
			offset, _ := cmd.Flags().GetString("offset")

			for i := range max(count, 1) {
				id := patient
				if count > 1 {
					id = fmt.Sprintf("%s-%d", patient, i+1)
				}
				dir := filepath.Join(out, id)
				if err := sample.WriteFolder(dir, sample.Patient{ID: id, Slices: slices, Offset: offset}); err != nil {
					return fmt.Errorf("writing %s: %w", dir, err)
				}
				slog.InfoContext(ctx, "wrote sample folder", slog.String("dir", dir))
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("out", "o", "", "BOA folder to write patients into")
	pf.Int("slices", 4, "DICOM slices per series")
	pf.String("patient", "P1", "patient id (prefix when --count > 1)")
	pf.Int("count", 1, "number of patient folders")
	pf.String("offset", "", "TimezoneOffsetFromUTC (+HHMM), empty for Europe/Berlin")
	return cmd
}
