package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"levelcorpus/internal/config"
	"levelcorpus/internal/export"
	"levelcorpus/internal/logging"
	"levelcorpus/internal/manifest"
)

// exportCmd runs the pipeline once
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the corpus once",
	Long: `Resets the output directory, loads the corpus, validates every level and
writes the per-level artifacts, the parameter CSV and the fitness table.

Any malformed identifier or row aborts the run before the first artifact
is written. Exit codes: 2 output path is not a directory, 3 malformed
corpus, 4 invalid identifier, 5 malformed row, 6 I/O failure.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	res, err := exportOnce(cmd.Context(), appConfig, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res))
	return nil
}

// exportOnce runs one export, recording it in the manifest when enabled.
func exportOnce(ctx context.Context, cfg *config.Config, log *logging.Logger) (*export.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	exp := export.New(cfg, log)

	if !cfg.ManifestEnabled() {
		return exp.Run(ctx)
	}

	store, err := manifest.Open(cfg.Manifest.Path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	defer store.Close()

	run, err := store.BeginRun(cfg.Paths.Corpus, cfg.Paths.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	res, runErr := exp.WithObserver(run).Run(ctx)
	if err := run.Finish(runErr); err != nil {
		log.Get(logging.CategoryManifest).Warn("Failed to finish manifest run", zap.Error(err))
	}
	if runErr != nil {
		return nil, runErr
	}
	log.Get(logging.CategoryManifest).Debug("Run recorded", zap.String("run", run.ID()))
	return res, nil
}
