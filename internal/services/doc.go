// Package services defines the shared error taxonomy for the conversion
// pipeline and its external tool clients.
//
// Every failure crossing a component boundary is tagged with one of the
// exported sentinel errors so callers can branch with errors.Is instead of
// inspecting concrete types. Wrap attaches component and operation context
// while preserving the marker and the underlying cause.
package services
