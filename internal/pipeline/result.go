package pipeline

import (
	"time"

	"batchpress/internal/compare"
	"batchpress/internal/services/ffprobe"
)

// FileOutcome is the recorded end state of one file.
type FileOutcome struct {
	SourcePath   string
	OutputPath   string
	State        State
	Skipped      bool
	Err          error
	ErrorKind    string
	ErrorMessage string
	Pre          *ffprobe.Metadata
	Post         *ffprobe.Metadata
	Report       *compare.Report
}

// PipelineResult is the run-level aggregate. It is mutated only by the Run
// goroutine while workers deliver outcomes over a channel, and is read-only
// once the run ends.
type PipelineResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Succeeded int
	Failed    int
	Skipped   int

	TotalInputBytes  int64
	TotalOutputBytes int64

	Files []FileOutcome

	Aborted    bool
	AbortError error
}

// SpaceSaved returns the aggregate byte difference between inputs and
// outputs of successful conversions. Positive means outputs are smaller.
func (r *PipelineResult) SpaceSaved() int64 {
	return r.TotalInputBytes - r.TotalOutputBytes
}

// Total returns the number of files the run accounted for.
func (r *PipelineResult) Total() int {
	return len(r.Files)
}

func (r *PipelineResult) record(outcome FileOutcome) {
	r.Files = append(r.Files, outcome)
	switch {
	case outcome.Skipped:
		r.Skipped++
	case outcome.State == StateDone:
		r.Succeeded++
		if outcome.Pre != nil {
			r.TotalInputBytes += outcome.Pre.SizeBytes
		}
		if outcome.Post != nil {
			r.TotalOutputBytes += outcome.Post.SizeBytes
		}
	default:
		r.Failed++
	}
}
