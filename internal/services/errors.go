package services

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrDiscovery marks an unusable input location. Run-fatal.
	ErrDiscovery = errors.New("discovery error")
	// ErrValidation marks a candidate rejected before probing. File-fatal.
	ErrValidation = errors.New("validation error")
	// ErrProbeExecution marks a prober binary that is missing or not
	// executable. Run-fatal: no file can be probed.
	ErrProbeExecution = errors.New("probe execution error")
	// ErrProbeTimeout marks a probe that exceeded its deadline. File-fatal,
	// retryable.
	ErrProbeTimeout = errors.New("probe timeout")
	// ErrProbeParse marks prober output that did not match the expected
	// structure. Treated as corrupt input, not a bug. File-fatal.
	ErrProbeParse = errors.New("probe parse error")
	// ErrConversion marks an encoder invocation that exited nonzero.
	// File-fatal.
	ErrConversion = errors.New("conversion error")
	// ErrConversionTimeout marks an encoder run that was killed after its
	// deadline. File-fatal, retryable.
	ErrConversionTimeout = errors.New("conversion timeout")
	// ErrNameExhausted marks a uniqueness resolver that could not find an
	// unclaimed output name. Run-fatal configuration problem.
	ErrNameExhausted = errors.New("name space exhausted")
	// ErrConfiguration marks an unusable runtime configuration. Run-fatal.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrConversion
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind reports the taxonomy label for an error, suitable for log records and
// run summaries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDiscovery):
		return "discovery"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrProbeExecution):
		return "probe-execution"
	case errors.Is(err, ErrProbeTimeout):
		return "probe-timeout"
	case errors.Is(err, ErrProbeParse):
		return "probe-parse"
	case errors.Is(err, ErrConversionTimeout):
		return "conversion-timeout"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrNameExhausted):
		return "name-exhausted"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// IsRunFatal reports whether an error must halt job dispatch for the whole
// run. An encoder or prober binary that vanishes mid-run surfaces as
// exec.ErrNotFound inside the wrapped chain and is run-fatal too.
func IsRunFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDiscovery) ||
		errors.Is(err, ErrProbeExecution) ||
		errors.Is(err, ErrNameExhausted) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, exec.ErrNotFound)
}

// IsRetryable reports whether a bounded retry may be attempted. Only the two
// timeout kinds are considered transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrProbeTimeout) || errors.Is(err, ErrConversionTimeout)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
