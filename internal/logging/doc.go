// Package logging constructs the slog loggers used across batchpress.
//
// The JSON handler writing to the run log file is the pipeline's log sink:
// one self-contained JSON object per record, with writes serialized by the
// handler so concurrent workers never interleave partial records. The
// console handler renders the same records for interactive runs; "auto"
// format picks between them based on whether stdout is a terminal.
package logging
