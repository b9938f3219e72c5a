package naming

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	separator = '_'
	// fallbackToken substitutes for names that sanitize to nothing.
	fallbackToken = "media"
)

// Sanitize restricts a raw base name to [A-Za-z0-9._-]. Runs of whitespace
// and disallowed characters become a single separator, repeated separators
// collapse, and leading/trailing separators are stripped. Unicode input is
// NFKC-normalized first so visually equivalent names map to the same result.
// Pure and idempotent: sanitizing an already-sanitized name is the identity.
func Sanitize(raw string) string {
	normalized := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(normalized))
	lastWasSeparator := false
	for _, r := range normalized {
		if allowedRune(r) {
			// Literal separators collapse the same way synthesized ones do.
			if r == separator && lastWasSeparator {
				continue
			}
			b.WriteRune(r)
			lastWasSeparator = r == separator
			continue
		}
		if !lastWasSeparator {
			b.WriteRune(separator)
			lastWasSeparator = true
		}
	}

	result := strings.Trim(b.String(), string(separator))
	if result == "" {
		return fallbackToken
	}
	return result
}

// SourceBase returns the sanitized base name (without extension) for a
// source path.
func SourceBase(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return Sanitize(stem)
}

func allowedRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}
