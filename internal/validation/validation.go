// Package validation pre-filters discovered candidates before any probing.
package validation

import (
	"fmt"
	"os"
	"path/filepath"

	"batchpress/internal/services"
)

// Reason identifies why a candidate was rejected.
type Reason string

const (
	ReasonEmpty                Reason = "empty"
	ReasonUnreadable           Reason = "unreadable"
	ReasonUnsupportedExtension Reason = "unsupported-extension"
)

// Error is a candidate rejection. It matches services.ErrValidation under
// errors.Is while carrying the reason code.
type Error struct {
	Path   string
	Reason Reason
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("validation error: %s: %s: %v", e.Reason, e.Path, e.cause)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Reason, e.Path)
}

func (e *Error) Unwrap() error { return services.ErrValidation }

// ExtensionPolicy reports whether an extension (with leading dot) is a
// plausible video container.
type ExtensionPolicy func(ext string) bool

// Check decides PASS (nil) or REJECT for a candidate path. It is a cheap
// pre-filter: size > 0, allow-listed extension, readable file. Container
// internals are the prober's job.
func Check(path string, allowed ExtensionPolicy) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Path: path, Reason: ReasonUnreadable, cause: err}
	}
	if info.Size() == 0 {
		return &Error{Path: path, Reason: ReasonEmpty}
	}
	if allowed != nil && !allowed(filepath.Ext(path)) {
		return &Error{Path: path, Reason: ReasonUnsupportedExtension}
	}

	file, err := os.Open(path)
	if err != nil {
		return &Error{Path: path, Reason: ReasonUnreadable, cause: err}
	}
	_ = file.Close()
	return nil
}
