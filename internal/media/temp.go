package media

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// tempDirPerm is the mode for the created temp directory.
const tempDirPerm = 0o755

// nameGenerator produces collision-free file names under one directory.
// Names combine a nanosecond timestamp with a process-wide counter so that
// concurrent acquisitions never clash.
type nameGenerator struct {
	dir     string
	counter atomic.Uint64
}

func newNameGenerator(dir string) *nameGenerator {
	return &nameGenerator{dir: dir}
}

// next returns a fresh path with the given extension.
func (g *nameGenerator) next(extension string) string {
	name := fmt.Sprintf("%d-%04d.%s", time.Now().UnixNano(), g.counter.Add(1), extension)
	return filepath.Join(g.dir, name)
}

// nextPreview returns a fresh preview path with the given extension.
func (g *nameGenerator) nextPreview(extension string) string {
	name := fmt.Sprintf("%d-%04d-preview.%s", time.Now().UnixNano(), g.counter.Add(1), extension)
	return filepath.Join(g.dir, name)
}

// ensureTempDir creates the temp directory if it does not exist. The
// directory is fully disposable and may be wiped between runs.
func (a *Acquirer) ensureTempDir() error {
	if err := os.MkdirAll(a.cfg.TempDir, tempDirPerm); err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	return nil
}

// DeleteFile removes a file. A missing file is not an error; the call is
// idempotent.
func (a *Acquirer) DeleteFile(path string) error {
	if path == "" {
		return nil
	}

	err := os.Remove(path)
	if err == nil {
		a.log.Debug("deleted file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("failed to delete %s: %w", path, err)
}

// CleanTempFolder removes every file in the temp directory, leaving the
// directory in place. Called at process start to recover from crash-left
// files and after each retention cleanup cycle.
func (a *Acquirer) CleanTempFolder() error {
	if err := a.ensureTempDir(); err != nil {
		return err
	}

	entries, err := os.ReadDir(a.cfg.TempDir)
	if err != nil {
		return fmt.Errorf("failed to read temp directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if deleteErr := a.DeleteFile(filepath.Join(a.cfg.TempDir, entry.Name())); deleteErr != nil {
			a.log.Warn("failed to remove temp file", "name", entry.Name(), "error", deleteErr)
			continue
		}
		removed++
	}

	a.log.Info("temp folder cleaned", "removed", removed)
	return nil
}
