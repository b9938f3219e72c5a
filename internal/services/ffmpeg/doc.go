// Package ffmpeg provides the encoder client used to transcode validated
// inputs into normalized MP4 output.
//
// Convert writes to a temporary path in the destination directory and
// renames on success, so a partially-written file is never mistaken for
// completed output. A run that exceeds its deadline is killed and the
// partial output removed (services.ErrConversionTimeout); a nonzero exit
// surfaces the captured diagnostics (services.ErrConversion).
package ffmpeg
