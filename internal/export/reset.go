package export

import (
	"fmt"
	"os"
	"path/filepath"

	"levelcorpus/internal/corpus"
)

// ResetDir guarantees dir exists and is empty. Existing entries are removed
// one level deep only; the output area is flat, so a nested directory with
// contents is reported as an IO failure rather than deleted recursively.
func ResetDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("%w: output path %s exists and is not a directory", corpus.ErrPrecondition, dir)
	case err == nil:
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("%w: listing %s: %v", corpus.ErrIO, dir, err)
		}
		for _, entry := range entries {
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return fmt.Errorf("%w: removing stale entry: %v", corpus.ErrIO, err)
			}
		}
		return nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", corpus.ErrIO, dir, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: inspecting %s: %v", corpus.ErrIO, dir, err)
	}
}
