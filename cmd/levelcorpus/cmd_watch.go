package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"levelcorpus/internal/corpus"
	"levelcorpus/internal/logging"
	"levelcorpus/internal/watch"
)

// watchCmd re-exports whenever the corpus changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Export, then re-export whenever the corpus file changes",
	Long: `Runs an initial export and then watches the corpus file. Each change,
once writes have been quiet for export.debounce, triggers a full re-export.
A failed re-export is logged and watching continues. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	watchLog := logger.Get(logging.CategoryWatch)

	if res, err := exportOnce(ctx, appConfig, logger); err != nil {
		watchLog.Error("Initial export failed",
			zap.String("kind", string(corpus.Classify(err))),
			zap.Error(err))
	} else {
		fmt.Fprintln(out, renderSummary(res))
	}

	w, err := watch.New(appConfig.Paths.Corpus, appConfig.GetDebounce(), func(ctx context.Context) error {
		res, err := exportOnce(ctx, appConfig, logger)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderSummary(res))
		return nil
	}, logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
