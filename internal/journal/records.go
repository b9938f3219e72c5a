package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunRecord is one run header row read back from the ledger.
type RunRecord struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Succeeded   int
	Failed      int
	Skipped     int
	InputBytes  int64
	OutputBytes int64
	Aborted     bool
	AbortError  string
}

// SpaceSaved returns the byte difference between recorded inputs and
// outputs. Positive means outputs are smaller.
func (r RunRecord) SpaceSaved() int64 {
	return r.InputBytes - r.OutputBytes
}

// FileRecord is one per-file ledger row.
type FileRecord struct {
	RunID          string
	SourcePath     string
	OutputPath     string
	State          string
	ErrorKind      string
	ErrorMessage   string
	InputBytes     int64
	OutputBytes    int64
	Classification string
	RecordedAt     time.Time
}

// Runs returns the most recent run headers, newest first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, started_at, finished_at, succeeded, failed, skipped,
            input_bytes, output_bytes, aborted, abort_error
        FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started string
		var finished, abortError sql.NullString
		var aborted int
		if err := rows.Scan(&rec.RunID, &started, &finished, &rec.Succeeded, &rec.Failed,
			&rec.Skipped, &rec.InputBytes, &rec.OutputBytes, &aborted, &abortError); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt = parseTimestamp(started)
		if finished.Valid {
			rec.FinishedAt = parseTimestamp(finished.String)
		}
		rec.Aborted = aborted != 0
		rec.AbortError = abortError.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FilesForRun returns every file record of a run in insertion order.
func (j *Journal) FilesForRun(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, source_path, output_path, state, error_kind, error_message,
            input_bytes, output_bytes, classification, recorded_at
        FROM file_records WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query file records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []FileRecord
	for rows.Next() {
		var rec FileRecord
		var outputPath, errorKind, errorMessage, classification sql.NullString
		var inputBytes, outputBytes sql.NullInt64
		var recordedAt string
		if err := rows.Scan(&rec.RunID, &rec.SourcePath, &outputPath, &rec.State,
			&errorKind, &errorMessage, &inputBytes, &outputBytes,
			&classification, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		rec.OutputPath = outputPath.String
		rec.ErrorKind = errorKind.String
		rec.ErrorMessage = errorMessage.String
		rec.InputBytes = inputBytes.Int64
		rec.OutputBytes = outputBytes.Int64
		rec.Classification = classification.String
		rec.RecordedAt = parseTimestamp(recordedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
