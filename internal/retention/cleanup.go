package retention

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediafetch/internal/jobs"
	"mediafetch/internal/logging"
)

// SweepResult contains the outcome of one age sweep.
type SweepResult struct {
	Evicted []string
	Orphans []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// removeDir deletes path; a missing directory is not an error.
func removeDir(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// cleanOrphans removes job directories under root that are older than cutoff
// and not tracked by known. Entries that are not job ids are left alone.
func cleanOrphans(root string, cutoff time.Time, known func(string) bool, logger *slog.Logger) ([]string, []CleanupError) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, []CleanupError{{Path: root, Error: err}}
	}

	var (
		removed []string
		errs    []CleanupError
	)
	for _, entry := range entries {
		if !entry.IsDir() || !jobs.ValidID(entry.Name()) || known(entry.Name()) {
			continue
		}
		created, err := jobs.CreatedAt(entry.Name())
		if err != nil || !created.Before(cutoff) {
			continue
		}
		dirPath := filepath.Join(root, entry.Name())
		if err := removeDir(dirPath); err != nil {
			errs = append(errs, CleanupError{Path: dirPath, Error: err})
			logger.Warn("failed to remove orphaned job directory",
				logging.Path(dirPath),
				logging.Error(err),
				logging.String(logging.FieldEventType, "retention_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check temp_root permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		removed = append(removed, dirPath)
		logger.Info("removed orphaned job directory",
			logging.Path(dirPath),
			logging.String("created_at", created.UTC().Format(time.RFC3339)),
			logging.String(logging.FieldEventType, "retention_orphan"),
		)
	}
	return removed, errs
}
