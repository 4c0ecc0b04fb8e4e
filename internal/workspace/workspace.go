// Package workspace inspects and prunes the dated run directories under the
// work dir (<work_dir>/<YYYY-MM-DD>/<video>/).
package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"streamdigest/internal/logging"
)

const dayLayout = "2006-01-02"

// Day is one dated directory of runs.
type Day struct {
	Date time.Time
	Path string
	Runs int
	Size int64
}

// PruneResult lists what a prune removed or failed to remove.
type PruneResult struct {
	Removed []Day
	Errors  []PruneError
}

// PruneError pairs a directory with the error that kept it on disk.
type PruneError struct {
	Path  string
	Error error
}

// ListDays returns the dated directories in workDir, oldest first. Entries
// whose names are not dates are ignored.
func ListDays(workDir string) ([]Day, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var days []Day
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, err := time.ParseInLocation(dayLayout, entry.Name(), time.Local)
		if err != nil {
			continue
		}
		dayPath := filepath.Join(workDir, entry.Name())
		days = append(days, Day{
			Date: date,
			Path: dayPath,
			Runs: countRuns(dayPath),
			Size: dirSize(dayPath),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// Candidates returns the days strictly older than now minus keep.
func Candidates(days []Day, keep time.Duration, now time.Time) []Day {
	cutoff := now.Add(-keep)
	var out []Day
	for _, day := range days {
		// A day is old once all of it lies before the cutoff.
		if !day.Date.AddDate(0, 0, 1).After(cutoff) {
			out = append(out, day)
		}
	}
	return out
}

// Prune removes dated directories older than keep. Removal stops early when
// ctx is cancelled.
func Prune(ctx context.Context, workDir string, keep time.Duration, now time.Time, logger *slog.Logger) PruneResult {
	var result PruneResult
	logger = logging.NewComponentLogger(logger, "workspace")

	days, err := ListDays(workDir)
	if err != nil {
		result.Errors = append(result.Errors, PruneError{Path: workDir, Error: err})
		return result
	}
	for _, day := range Candidates(days, keep, now) {
		if ctx.Err() != nil {
			break
		}
		if err := os.RemoveAll(day.Path); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: day.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove run directory", "workspace_prune_failed",
				logging.String("path", day.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, day)
		logger.Info("removed run directory",
			logging.String("path", day.Path),
			logging.Int("runs", day.Runs),
			logging.Int64("size_bytes", day.Size),
			logging.String(logging.FieldEventType, "workspace_prune"),
		)
	}
	return result
}

func countRuns(path string) int {
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			n++
		}
	}
	return n
}

// dirSize is best effort; unreadable entries are skipped.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size
}
