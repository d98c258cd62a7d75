// Package watch re-runs the corpus export whenever the corpus file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"levelcorpus/internal/corpus"
	"levelcorpus/internal/logging"
)

// ExportFunc performs one full export.
type ExportFunc func(ctx context.Context) error

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Exports       int
	Failures      int
	LastError     string
	LastEventTime time.Time
}

// Watcher watches the corpus file's directory and calls its ExportFunc once
// writes to the corpus have been quiet for the debounce period. Exports run
// on the watcher goroutine, one at a time.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	export   ExportFunc
	log      *zap.Logger
	stats    Stats
}

// New starts watching corpusPath. Events are buffered from this point on,
// so a change made between New and Run is not lost.
func New(corpusPath string, debounce time.Duration, fn ExportFunc, log *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(corpusPath)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file rather than write it.
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", corpus.ErrIO, filepath.Dir(abs), err)
	}

	return &Watcher{
		watcher:  fw,
		path:     abs,
		debounce: debounce,
		export:   fn,
		log:      log.Get(logging.CategoryWatch),
	}, nil
}

// Run processes events until ctx is done, then closes the underlying watcher.
// Export failures are logged and counted; they do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.log.Error("Closing watcher failed", zap.Error(err))
		}
	}()

	w.log.Info("Watching corpus", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.mu.Lock()
			w.stats.Events++
			w.stats.LastEventTime = time.Now()
			w.mu.Unlock()
			w.log.Debug("Corpus event", zap.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.runExport(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) runExport(ctx context.Context) {
	err := w.export(ctx)

	w.mu.Lock()
	w.stats.Exports++
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
	} else {
		w.stats.LastError = ""
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error("Re-export failed",
			zap.String("kind", string(corpus.Classify(err))),
			zap.Error(err))
		return
	}
	w.log.Info("Re-export complete")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
