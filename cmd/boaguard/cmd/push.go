package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jpfielding/boaguard.go/pkg/config"
	"github.com/jpfielding/boaguard.go/pkg/push"
	"github.com/spf13/cobra"
)

// NewPushCmd posts transaction_bundles.json to the configured FHIR server
func NewPushCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "POST to server",
		Long:  "Posts transaction_bundles.json to FHIR_URL with FHIR_USER/FHIR_PWD basic auth and saves the answer to response.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fhirDir, err := existingDir(cmd, "fhir-folder")
			if err != nil {
				return err
			}
			envFile, _ := cmd.Flags().GetString("env-file")
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			return runPush(ctx, slog.Default(), cfg, fhirDir)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("fhir-folder", "f", "", "Path to the FHIR bundles / transactions folder")
	pf.String("env-file", ".env", "dotenv file with FHIR_URL, FHIR_USER, FHIR_PWD")
	return cmd
}

func runPush(ctx context.Context, log *slog.Logger, cfg *config.Config, fhirDir string) error {
	in := filepath.Join(fhirDir, TransactionsFile)
	body, err := os.ReadFile(in)
	if errors.Is(err, fs.ErrNotExist) {
		log.WarnContext(ctx, "FHIR transactions are missing, run `boaguard tx -f FHIR_FOLDER` first", slog.String("folder", fhirDir))
		return nil
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w, add them to your environment or .env", err)
	}

	resp, err := push.NewClient(cfg, log).Post(ctx, body)
	if resp != nil {
		out := filepath.Join(fhirDir, ResponseFile)
		if werr := os.WriteFile(out, push.Pretty(resp.Body), 0o644); werr != nil {
			log.ErrorContext(ctx, "saving FHIR response", slog.String("file", out), slog.Any("error", werr))
		} else {
			log.InfoContext(ctx, "FHIR response saved", slog.String("file", out))
		}
	}
	return err
}
