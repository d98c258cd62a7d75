package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"levelcorpus/internal/config"
	"levelcorpus/internal/corpus"
	"levelcorpus/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Path overrides
	corpusFlag  string
	outDirFlag  string
	csvFlag     string
	fitnessFlag string

	// Resolved at startup
	appConfig *config.Config
	logger    *logging.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "levelcorpus",
	Short: "Export a generated level corpus for MAP-Elites illumination",
	Long: `levelcorpus converts a JSON corpus of generated levels into the files a
MAP-Elites search reads:

  levels/<id>_0.txt                            one stripped grid per level
  config_map_elites_generate_corpus_data.csv   Density,leniency,index,performance
  generate_corpus_info.json                    {"fitness": {"<id>_0.txt": 0}}

Level identifiers have the form <leniency>_<density>.
Run without a subcommand to export once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		appConfig = cfg

		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logger.Get(logging.CategoryBoot).Debug("Configuration resolved",
			zap.String("corpus", cfg.Paths.Corpus),
			zap.String("output_dir", cfg.Paths.OutputDir),
			zap.String("manifest", cfg.Manifest.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runExport,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/"+config.DefaultConfigFile+")")

	rootCmd.PersistentFlags().StringVar(&corpusFlag, "corpus", "", "Corpus JSON file")
	rootCmd.PersistentFlags().StringVar(&outDirFlag, "out-dir", "", "Directory for per-level artifacts")
	rootCmd.PersistentFlags().StringVar(&csvFlag, "csv", "", "Generation-parameter CSV")
	rootCmd.PersistentFlags().StringVar(&fitnessFlag, "fitness", "", "Fitness-tracking JSON")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(corpus.Classify(err).ExitCode())
	}
}

// resolveConfig loads the config file, applies flag overrides and anchors
// relative paths at the workspace.
func resolveConfig() (*config.Config, error) {
	ws := workspace
	if ws == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		ws = cwd
	}

	path := configPath
	if path == "" {
		path = filepath.Join(ws, config.DefaultConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if corpusFlag != "" {
		cfg.Paths.Corpus = corpusFlag
	}
	if outDirFlag != "" {
		cfg.Paths.OutputDir = outDirFlag
	}
	if csvFlag != "" {
		cfg.Paths.CSV = csvFlag
	}
	if fitnessFlag != "" {
		cfg.Paths.Fitness = fitnessFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg.Resolve(ws), nil
}
