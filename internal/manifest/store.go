// Package manifest keeps a SQLite ledger of export runs and the levels each
// run produced, so a search campaign can trace which corpus version its
// artifacts came from.
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"levelcorpus/internal/corpus"
)

// Run outcomes.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunInfo is one row of the runs table.
type RunInfo struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	CorpusPath string
	OutputDir  string
	Levels     int
	Status     string
	Error      string
}

// LevelInfo is one exported level of a run.
type LevelInfo struct {
	ID       string
	Filename string
	Leniency string
	Density  string
	Rows     int
	Width    int
	Position int
}

// Store manages the manifest database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
	now    func() time.Time
}

// Open creates or opens the manifest at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		corpus_path TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		levels INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS levels (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		filename TEXT NOT NULL,
		leniency TEXT NOT NULL,
		density TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		width INTEGER NOT NULL,
		PRIMARY KEY (run_id, identifier)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun inserts a running entry and returns a handle for recording levels.
func (s *Store) BeginRun(corpusPath, outputDir string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, corpus_path, output_dir, status) VALUES (?, ?, ?, ?, ?)`,
		id, s.now().UnixMilli(), corpusPath, outputDir, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return &Run{store: s, id: id}, nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]RunInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, started_at, finished_at, corpus_path, output_dir, levels, status, error
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			r        RunInfo
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.CorpusPath, &r.OutputDir, &r.Levels, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Levels returns the levels recorded for runID in export order.
func (s *Store) Levels(runID string) ([]LevelInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT identifier, filename, leniency, density, row_count, width, position
		FROM levels WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels: %w", err)
	}
	defer rows.Close()

	var levels []LevelInfo
	for rows.Next() {
		var l LevelInfo
		if err := rows.Scan(&l.ID, &l.Filename, &l.Leniency, &l.Density, &l.Rows, &l.Width, &l.Position); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// Run records the levels of one export. It satisfies export.Observer.
type Run struct {
	store *Store
	id    string
	count int
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	return r.id
}

// ObserveLevel records one exported level.
func (r *Run) ObserveLevel(rec corpus.Record) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(`INSERT INTO levels
		(run_id, position, identifier, filename, leniency, density, row_count, width)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id, r.count, rec.ID, rec.Filename(), rec.Params.Leniency, rec.Params.Density, len(rec.Rows), rec.Width())
	if err != nil {
		return fmt.Errorf("failed to record level %q: %w", rec.ID, err)
	}
	r.count++
	return nil
}

// Finish marks the run succeeded, or failed with runErr.
func (r *Run) Finish(runErr error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := r.store.db.Exec(`UPDATE runs SET finished_at = ?, levels = ?, status = ?, error = ? WHERE id = ?`,
		r.store.now().UnixMilli(), r.count, status, msg, r.id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}
