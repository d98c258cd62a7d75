package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"levelcorpus/internal/corpus"
)

// DefaultConfigFile is looked up in the workspace when --config is not given.
const DefaultConfigFile = "levelcorpus.yaml"

// Config holds all levelcorpus configuration.
type Config struct {
	// Input and output locations
	Paths PathsConfig `yaml:"paths"`

	// Export tuning
	Export ExportConfig `yaml:"export"`

	// Run ledger
	Manifest ManifestConfig `yaml:"manifest"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig names every file the pipeline reads or owns.
type PathsConfig struct {
	Corpus    string `yaml:"corpus"`     // JSON corpus, identifier -> rows
	OutputDir string `yaml:"output_dir"` // one <id>_0.txt per level
	CSV       string `yaml:"csv"`        // generation-parameter table
	Fitness   string `yaml:"fitness"`    // fitness-tracking JSON
}

// ExportConfig configures the level exporter.
type ExportConfig struct {
	// Padding cells stripped from each end of every row.
	Border int `yaml:"border"`

	// Watch mode: quiet period after the last corpus write before re-exporting.
	Debounce string `yaml:"debounce"`
}

// ManifestConfig configures the SQLite run ledger. An empty path disables it.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration. Paths are the fixed
// names the downstream search expects, relative to the workspace.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Corpus:    "levels.json",
			OutputDir: "levels",
			CSV:       "config_map_elites_generate_corpus_data.csv",
			Fitness:   "generate_corpus_info.json",
		},

		Export: ExportConfig{
			Border:   corpus.RowBorder,
			Debounce: "500ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config over the defaults and applies environment
// overrides. A missing file yields the defaults; unknown keys are rejected
// so a misspelled path setting cannot silently fall back to a default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes c as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LEVELCORPUS_CORPUS"); v != "" {
		c.Paths.Corpus = v
	}
	if v := os.Getenv("LEVELCORPUS_OUT_DIR"); v != "" {
		c.Paths.OutputDir = v
	}
	if v := os.Getenv("LEVELCORPUS_CSV"); v != "" {
		c.Paths.CSV = v
	}
	if v := os.Getenv("LEVELCORPUS_FITNESS"); v != "" {
		c.Paths.Fitness = v
	}
	if v := os.Getenv("LEVELCORPUS_MANIFEST"); v != "" {
		c.Manifest.Path = v
	}
	if v := os.Getenv("LEVELCORPUS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Resolve returns a copy with every relative path anchored at base.
func (c *Config) Resolve(base string) *Config {
	out := *c
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	out.Paths.Corpus = anchor(c.Paths.Corpus)
	out.Paths.OutputDir = anchor(c.Paths.OutputDir)
	out.Paths.CSV = anchor(c.Paths.CSV)
	out.Paths.Fitness = anchor(c.Paths.Fitness)
	out.Manifest.Path = anchor(c.Manifest.Path)
	out.Logging.File = anchor(c.Logging.File)
	return &out
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Export.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// ManifestEnabled reports whether runs are recorded in the SQLite ledger.
func (c *Config) ManifestEnabled() bool {
	return c.Manifest.Path != ""
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"paths.corpus", c.Paths.Corpus},
		{"paths.output_dir", c.Paths.OutputDir},
		{"paths.csv", c.Paths.CSV},
		{"paths.fitness", c.Paths.Fitness},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s must not be empty", r.name)
		}
	}

	if c.Export.Border < 0 {
		return fmt.Errorf("export.border must be >= 0, got %d", c.Export.Border)
	}

	validLevel := false
	for _, l := range ValidLogLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	return nil
}
