package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"batchpress/internal/services"
)

// OutputExt is the container extension every converted file receives.
const OutputExt = ".mp4"

// maxNumericAttempts bounds the numeric disambiguator before falling back to
// a timestamp suffix.
const maxNumericAttempts = 10000

// Resolver hands out unique output paths within one run. A name is taken if
// it was reserved earlier in the run or if a file with that name already
// exists in the output directory. All methods are goroutine-safe.
type Resolver struct {
	mu      sync.Mutex
	dir     string
	claimed map[string]struct{}
}

// NewResolver creates a resolver for the given output directory.
func NewResolver(outputDir string) *Resolver {
	return &Resolver{
		dir:     outputDir,
		claimed: make(map[string]struct{}),
	}
}

// Reserve claims and returns the full output path for a sanitized base name,
// appending a numeric disambiguator until the name is unclaimed. The
// reservation holds for the remainder of the run.
func (r *Resolver) Reserve(base string) (string, error) {
	if base == "" {
		base = fallbackToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if name := base + OutputExt; r.available(name) {
		return r.claim(name), nil
	}
	for i := 1; i < maxNumericAttempts; i++ {
		name := fmt.Sprintf("%s%c%d%s", base, separator, i, OutputExt)
		if r.available(name) {
			return r.claim(name), nil
		}
	}

	// Numeric space exhausted; a timestamp is the last resort.
	name := fmt.Sprintf("%s%c%s%s", base, separator, time.Now().UTC().Format("20060102T150405.000000000"), OutputExt)
	if r.available(name) {
		return r.claim(name), nil
	}
	return "", services.Wrap(services.ErrNameExhausted, "naming", "reserve", fmt.Sprintf("no unclaimed name for %q", base), nil)
}

// Reserved reports how many names this run has claimed.
func (r *Resolver) Reserved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claimed)
}

func (r *Resolver) available(name string) bool {
	if _, taken := r.claimed[name]; taken {
		return false
	}
	if _, err := os.Lstat(filepath.Join(r.dir, name)); err == nil {
		return false
	}
	return true
}

func (r *Resolver) claim(name string) string {
	r.claimed[name] = struct{}{}
	return filepath.Join(r.dir, name)
}
