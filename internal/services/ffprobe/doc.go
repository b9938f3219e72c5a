// Package ffprobe provides a typed client around ffprobe JSON output.
//
// Key types:
//   - Metadata: the immutable media metadata value the pipeline compares
//     before and after conversion
//   - Result: raw parsed ffprobe output (streams and format)
//
// Primary entry point:
//   - Client.Inspect: executes ffprobe with a fixed argument set under a
//     deadline and returns Metadata
//
// Failures are tagged with the services taxonomy: a missing binary is
// services.ErrProbeExecution, an exceeded deadline services.ErrProbeTimeout,
// and a nonzero exit or malformed payload services.ErrProbeParse.
package ffprobe
