package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joeshaw/bods-gtfs/internal/gtfs"
)

// CleanupReport counts the staged files removed after a load
type CleanupReport struct {
	Removed int
	Failed  int
}

// Discard deletes the store at dbPath together with its WAL sidecars. A
// store that does not exist is not an error. Any other removal failure is
// returned: loading on top of a stale store would collide on primary keys.
func Discard(dbPath string) error {
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func isStaged(name string) bool {
	return strings.HasSuffix(name, ".txt") || name == gtfs.ArchiveName
}

// ClearStaging removes staged files left in dir by an earlier run, so a
// table missing from the next archive cannot be loaded from a previous
// feed. A missing dir is not an error; a file that cannot be removed is.
func ClearStaging(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if !isStaged(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// Cleanup removes the staged table files and the downloaded archive from
// dir. Failures are logged and counted, never returned.
func Cleanup(dir string, logger logrus.FieldLogger) CleanupReport {
	var report CleanupReport
	log := logger.WithField("dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.WithError(err).Warn("Failed to list staging directory")
		report.Failed++
		return report
	}

	for _, entry := range entries {
		name := entry.Name()
		if !isStaged(name) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			log.WithError(err).WithField("file", name).Warn("Failed to remove staged file")
			report.Failed++
			continue
		}
		report.Removed++
	}

	log.WithFields(logrus.Fields{"removed": report.Removed, "failed": report.Failed}).Info("Staging directory cleaned")
	return report
}
