package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jpfielding/boaguard.go/pkg/logging"
	"github.com/spf13/cobra"
)

// Files written into the FHIR folder
const (
	BundlesFile      = "fhir-bundles.json"
	TransactionsFile = "transaction_bundles.json"
	ResponseFile     = "response.json"
)

// openLogFile opens the --log-file target
var openLogFile = func(path string) io.WriteCloser {
	return logging.RotatingFile(path, 50, 5)
}

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	// finalizers run even when RunE fails, PersistentPostRun does not
	cobra.OnFinalize(func() {
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	})
	cmd := &cobra.Command{
		Use:           "boaguard",
		Short:         "transform BOA results into FHIR resources and push them",
		Long:          "boaguard reads body composition analysis output (measurement JSON, DICOM series, run report) and turns it into FHIR transaction bundles.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			asJSON, _ := cmd.Flags().GetBool("log-json")
			path, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stdout
			if path != "" {
				f := openLogFile(path)
				logFile = f
				w = io.MultiWriter(os.Stdout, f)
			}
			slog.SetDefault(logging.Logger(w, asJSON, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewBundlesCmd(ctx),
		NewTxCmd(ctx),
		NewPushCmd(ctx),
		NewSampleCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "log as json instead of text")
	pf.String("log-file", "", "also log to this file, rotated at 50MB")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// existingDir resolves a directory flag and fails when it does not exist
func existingDir(cmd *cobra.Command, name string) (string, error) {
	dir, _ := cmd.Flags().GetString(name)
	if dir == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("'%s' is not an existing directory", abs)
	}
	return abs, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
