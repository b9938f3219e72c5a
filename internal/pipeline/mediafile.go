package pipeline

import (
	"batchpress/internal/services/ffmpeg"
	"batchpress/internal/services/ffprobe"
)

// MediaFile tracks one unit of work. It is created when discovery finds a
// candidate and owned exclusively by the worker running its state machine;
// nothing else mutates it.
type MediaFile struct {
	SourcePath string
	// OutputPath is assigned once by the uniqueness resolver and immutable
	// thereafter.
	OutputPath string
	State      State
	Pre        *ffprobe.Metadata
	Post       *ffprobe.Metadata
	Err        error
}

// ConversionJob is the unit submitted to a worker: one MediaFile plus the
// encoder parameter set. It exists only while the worker executes it and
// carries no state of its own.
type ConversionJob struct {
	File   *MediaFile
	Params ffmpeg.Params
}
