// Package journal persists an append-only audit ledger of runs and per-file
// outcomes in SQLite. It is a record of what happened, not a work queue: the
// orchestrator never reads it to decide what to process.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"batchpress/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; the journal is an audit log, so users can delete it freely.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Journal records run and file outcomes. It implements pipeline.Recorder.
type Journal struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

func (j *Journal) initSchema(ctx context.Context) error {
	var tableExists int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return j.createSchema(ctx)
	}

	var version int
	err = j.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete the journal file to reset)",
			ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (j *Journal) createSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// BeginRun inserts the run header row when dispatch starts.
func (j *Journal) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO runs (run_id, started_at) VALUES (?, ?)",
		runID,
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFile appends one terminal file outcome to the ledger.
func (j *Journal) RecordFile(ctx context.Context, runID string, outcome pipeline.FileOutcome) error {
	var inputBytes, outputBytes sql.NullInt64
	var preDuration, postDuration sql.NullFloat64
	if outcome.Pre != nil {
		inputBytes = sql.NullInt64{Int64: outcome.Pre.SizeBytes, Valid: true}
		preDuration = sql.NullFloat64{Float64: outcome.Pre.DurationSeconds, Valid: true}
	}
	if outcome.Post != nil {
		outputBytes = sql.NullInt64{Int64: outcome.Post.SizeBytes, Valid: true}
		postDuration = sql.NullFloat64{Float64: outcome.Post.DurationSeconds, Valid: true}
	}
	var classification string
	if outcome.Report != nil {
		classification = string(outcome.Report.Classification)
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO file_records (
            run_id, source_path, output_path, state, error_kind, error_message,
            input_bytes, output_bytes, pre_duration, post_duration,
            classification, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		outcome.SourcePath,
		nullableString(outcome.OutputPath),
		string(outcome.State),
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		inputBytes,
		outputBytes,
		preDuration,
		postDuration,
		nullableString(classification),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// FinishRun writes the run's final counters and timestamps.
func (j *Journal) FinishRun(ctx context.Context, result *pipeline.PipelineResult) error {
	var abortError string
	if result.AbortError != nil {
		abortError = result.AbortError.Error()
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET
            finished_at = ?, succeeded = ?, failed = ?, skipped = ?,
            input_bytes = ?, output_bytes = ?, aborted = ?, abort_error = ?
        WHERE run_id = ?`,
		result.FinishedAt.UTC().Format(time.RFC3339Nano),
		result.Succeeded,
		result.Failed,
		result.Skipped,
		result.TotalInputBytes,
		result.TotalOutputBytes,
		boolToInt(result.Aborted),
		nullableString(abortError),
		result.RunID,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
