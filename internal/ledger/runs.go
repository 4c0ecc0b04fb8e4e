package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, title, video_path, video_url, recipient, manifest_path, output_dir, status, phase, error_message, segments, screenshots, capture_failures, batches_total, batches_sent, batches_failed, remote_status, started_at, updated_at, finished_at"

// StartRun inserts a new run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.Phase == "" {
		run.Phase = "started"
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, title, video_path, video_url, recipient, manifest_path, output_dir, status, phase, started_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Title,
		run.VideoPath,
		nullableString(run.VideoURL),
		nullableString(run.Recipient),
		nullableString(run.ManifestPath),
		nullableString(run.OutputDir),
		StatusRunning,
		run.Phase,
		formatTime(run.StartedAt),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdatePhase records the phase a run just entered.
func (s *Store) UpdatePhase(ctx context.Context, runID, phase string) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET phase = ?, updated_at = ? WHERE id = ?`,
		phase, formatTime(time.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("update phase: %w", err)
	}
	return requireRow(res, runID)
}

// FinishRun stamps the final status and counters onto a run. The phase is
// left as the last one reached so failed runs show where they stopped.
func (s *Store) FinishRun(ctx context.Context, runID string, summary Summary) error {
	now := formatTime(time.Now())
	res, err := s.exec(ctx,
		`UPDATE runs
         SET status = ?, error_message = ?, segments = ?, screenshots = ?, capture_failures = ?,
             batches_total = ?, batches_sent = ?, batches_failed = ?, remote_status = ?,
             updated_at = ?, finished_at = ?
         WHERE id = ?`,
		summary.Status,
		nullableString(summary.ErrorMessage),
		summary.Segments,
		summary.Screenshots,
		summary.CaptureFailures,
		summary.BatchesTotal,
		summary.BatchesSent,
		summary.BatchesFailed,
		nullableString(summary.RemoteStatus),
		now,
		now,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, runID)
}

// RecordReceipt stores the outcome of one batch. Re-recording a batch
// replaces the earlier row.
func (s *Store) RecordReceipt(ctx context.Context, runID string, receipt Receipt) error {
	if receipt.RecordedAt.IsZero() {
		receipt.RecordedAt = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT OR REPLACE INTO receipts (run_id, batch_index, batch_total, status, reason, images, skipped, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		receipt.BatchIndex,
		receipt.BatchTotal,
		receipt.Status,
		nullableString(receipt.Reason),
		receipt.Images,
		receipt.Skipped,
		formatTime(receipt.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("record receipt: %w", err)
	}
	return nil
}

// GetRun fetches a run by ID. It returns nil when no such run exists.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Receipts returns the recorded batches of a run in batch order.
func (s *Store) Receipts(ctx context.Context, runID string) ([]Receipt, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT batch_index, batch_total, status, reason, images, skipped, recorded_at
         FROM receipts WHERE run_id = ? ORDER BY batch_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var (
			r        Receipt
			reason   sql.NullString
			recorded string
		)
		if err := rows.Scan(&r.BatchIndex, &r.BatchTotal, &r.Status, &reason, &r.Images, &r.Skipped, &recorded); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		r.Reason = reason.String
		if t, err := parseTimeString(recorded); err == nil {
			r.RecordedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		videoURL     sql.NullString
		recipient    sql.NullString
		manifestPath sql.NullString
		outputDir    sql.NullString
		status       string
		errorMessage sql.NullString
		remoteStatus sql.NullString
		startedRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Title,
		&run.VideoPath,
		&videoURL,
		&recipient,
		&manifestPath,
		&outputDir,
		&status,
		&run.Phase,
		&errorMessage,
		&run.Segments,
		&run.Screenshots,
		&run.CaptureFailures,
		&run.BatchesTotal,
		&run.BatchesSent,
		&run.BatchesFailed,
		&remoteStatus,
		&startedRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.VideoURL = videoURL.String
	run.Recipient = recipient.String
	run.ManifestPath = manifestPath.String
	run.OutputDir = outputDir.String
	run.Status = Status(status)
	run.ErrorMessage = errorMessage.String
	run.RemoteStatus = remoteStatus.String
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = t
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}
