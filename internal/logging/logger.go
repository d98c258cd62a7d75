// Package logging provides config-driven categorized logging for levelcorpus.
// Each pipeline stage logs through a named child of one zap root logger, and
// categories can be switched off individually in the logging config.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"levelcorpus/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config resolution
	CategoryLoader   Category = "loader"   // Corpus parsing
	CategoryExport   Category = "export"   // Output reset and artifact writes
	CategoryMetadata Category = "metadata" // CSV and fitness table
	CategoryManifest Category = "manifest" // SQLite run ledger
	CategoryWatch    Category = "watch"    // Corpus file watcher
)

// Logger hands out per-category zap loggers.
type Logger struct {
	root *zap.Logger
	cfg  config.LoggingConfig
}

// New builds the root logger. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.DisableStacktrace = true

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zc.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	root, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Logger{root: root, cfg: cfg}, nil
}

// Wrap adopts an existing zap logger, e.g. zaptest or zap.NewNop in tests.
func Wrap(root *zap.Logger) *Logger {
	if root == nil {
		root = zap.NewNop()
	}
	return &Logger{root: root}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return Wrap(nil)
}

// Get returns the logger for a category, or a no-op logger if the category is disabled.
func (l *Logger) Get(category Category) *zap.Logger {
	if l == nil || l.root == nil {
		return zap.NewNop()
	}
	if !l.cfg.IsCategoryEnabled(string(category)) {
		return zap.NewNop()
	}
	return l.root.Named(string(category))
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	if l == nil || l.root == nil {
		return nil
	}
	return l.root.Sync()
}
