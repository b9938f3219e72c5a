// Package pipeline drives the per-file conversion state machine and its
// orchestration across a bounded worker pool.
//
// Each discovered file is owned by exactly one worker for its lifetime and
// walks discovered → validated → probed-pre → converting → converted →
// probed-post → compared → done, short-circuiting to failed on any stage
// error. Cross-file shared state (output-name reservations, the log sink,
// the run aggregate) is funneled through synchronized single-writer points:
// the naming resolver serializes reservations, slog handlers serialize
// records, and only the Run goroutine mutates PipelineResult.
package pipeline
