package ledger

import (
	"context"
	"fmt"
	"time"
)

// ManifestProcessed reports whether the manifest at path with the given
// modification time has already been handled.
func (s *Store) ManifestProcessed(ctx context.Context, path string, modTime time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM processed_manifests WHERE path = ? AND mod_time = ?`,
		path, formatTime(modTime),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check manifest: %w", err)
	}
	return count > 0, nil
}

// MarkManifestProcessed records that the manifest was handled by runID.
func (s *Store) MarkManifestProcessed(ctx context.Context, path string, modTime time.Time, runID string) error {
	_, err := s.exec(ctx,
		`INSERT OR REPLACE INTO processed_manifests (path, mod_time, run_id, processed_at) VALUES (?, ?, ?, ?)`,
		path, formatTime(modTime), nullableString(runID), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("mark manifest: %w", err)
	}
	return nil
}
