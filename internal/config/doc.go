// Package config loads, normalizes, and validates batchpress configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the pipeline needs: input/output/log locations, external tool binaries and
// timeouts, the tuned encoder parameter set, and concurrency settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors; there are no process-wide
// mutable singletons.
package config
