// Package naming derives collision-free output filenames.
//
// Sanitize is a pure function restricting a raw filename to a safe character
// set. Resolver reserves sanitized names against both the current run's
// claims and files already present in the output directory; reservations are
// goroutine-safe so concurrent pipeline workers never receive the same
// output path.
package naming
