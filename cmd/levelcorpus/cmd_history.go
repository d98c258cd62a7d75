package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"levelcorpus/internal/export"
	"levelcorpus/internal/manifest"
)

var (
	historyLimit int
	historyRun   string
)

// historyCmd lists recorded export runs
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List export runs recorded in the manifest",
	Long: `Shows recent export runs from the manifest database (manifest.path in the
config). With --run, lists the levels that run exported together with the
current fitness score the search has written for each artifact.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the levels of one run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !appConfig.ManifestEnabled() {
		return errors.New("manifest disabled: set manifest.path in the config or LEVELCORPUS_MANIFEST")
	}

	store, err := manifest.Open(appConfig.Manifest.Path)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if historyRun == "" {
		runs, err := store.Runs(historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderRuns(runs))
		return nil
	}

	levels, err := store.Levels(historyRun)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		return fmt.Errorf("no levels recorded for run %s", historyRun)
	}

	var scores map[string]float64
	if table, err := export.ReadFitness(appConfig.Paths.Fitness); err == nil {
		scores = table.Fitness
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Fprintln(out, renderLevels(levels, scores))
	return nil
}
