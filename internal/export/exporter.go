// Package export turns a level corpus into per-level artifacts plus the CSV
// parameter table and fitness table read by the illumination search.
//
// A run is strictly sequential: reset the output area, load the corpus,
// validate every level, then write artifacts and metadata level by level.
// Validation happens before the first artifact is written, so a malformed
// identifier or row leaves the output directory empty.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"levelcorpus/internal/config"
	"levelcorpus/internal/corpus"
	"levelcorpus/internal/logging"
)

// Observer is notified after each level's artifact has been written.
// A returned error aborts the run.
type Observer interface {
	ObserveLevel(rec corpus.Record) error
}

// Result summarizes a completed run.
type Result struct {
	Levels      int
	Files       []string
	OutputDir   string
	CSVPath     string
	FitnessPath string
	Duration    time.Duration
}

// Exporter runs the export pipeline for one set of paths.
type Exporter struct {
	paths    config.PathsConfig
	border   int
	log      *logging.Logger
	observer Observer
}

// New creates an exporter from cfg. Paths are used as given; call
// cfg.Resolve first to anchor them at a workspace.
func New(cfg *config.Config, log *logging.Logger) *Exporter {
	if log == nil {
		log = logging.Nop()
	}
	return &Exporter{
		paths:  cfg.Paths,
		border: cfg.Export.Border,
		log:    log,
	}
}

// WithObserver attaches an observer and returns e.
func (e *Exporter) WithObserver(o Observer) *Exporter {
	e.observer = o
	return e
}

// Run resets the output directory, loads the corpus and exports it.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	exportLog := e.log.Get(logging.CategoryExport)

	if err := ResetDir(e.paths.OutputDir); err != nil {
		return nil, err
	}
	exportLog.Debug("Output directory reset", zap.String("dir", e.paths.OutputDir))

	c, err := corpus.LoadFile(e.paths.Corpus)
	if err != nil {
		return nil, err
	}
	e.log.Get(logging.CategoryLoader).Info("Corpus loaded",
		zap.String("path", e.paths.Corpus),
		zap.Int("levels", c.Len()))

	res, err := e.Export(ctx, c)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	exportLog.Info("Export complete",
		zap.Int("levels", res.Levels),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// Export writes c into an already reset output directory along with both
// metadata files. Every level is validated before anything is written.
func (e *Exporter) Export(ctx context.Context, c *corpus.Corpus) (*Result, error) {
	records, err := Plan(c, e.border)
	if err != nil {
		return nil, err
	}

	exportLog := e.log.Get(logging.CategoryExport)
	meta := NewMetadata()
	res := &Result{
		OutputDir:   e.paths.OutputDir,
		CSVPath:     e.paths.CSV,
		FitnessPath: e.paths.Fitness,
		Files:       make([]string, 0, len(records)),
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := rec.Filename()
		if err := writeFile(filepath.Join(e.paths.OutputDir, name), []byte(rec.Content())); err != nil {
			return nil, fmt.Errorf("level %q: %w", rec.ID, err)
		}
		meta.Add(rec)
		res.Files = append(res.Files, name)

		if e.observer != nil {
			if err := e.observer.ObserveLevel(rec); err != nil {
				return nil, fmt.Errorf("level %q: %w", rec.ID, err)
			}
		}
		exportLog.Debug("Wrote artifact",
			zap.String("file", name),
			zap.Int("rows", len(rec.Rows)))
	}

	metaLog := e.log.Get(logging.CategoryMetadata)
	if err := meta.WriteCSV(e.paths.CSV); err != nil {
		return nil, err
	}
	metaLog.Debug("Wrote parameter table", zap.String("path", e.paths.CSV), zap.Int("rows", meta.Len()))

	if err := meta.WriteFitness(e.paths.Fitness); err != nil {
		return nil, err
	}
	metaLog.Debug("Wrote fitness table", zap.String("path", e.paths.Fitness), zap.Int("entries", meta.Len()))

	res.Levels = meta.Len()
	return res, nil
}

// Plan validates every level of c and returns the export records in corpus order.
func Plan(c *corpus.Corpus, border int) ([]corpus.Record, error) {
	records := make([]corpus.Record, 0, c.Len())
	for _, level := range c.Levels {
		rec, err := corpus.NewRecord(level, border)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListArtifacts returns the names of the files currently in dir.
func ListArtifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", corpus.ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
