// Package discovery enumerates conversion candidates in the input location.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"batchpress/internal/services"
)

// Scanner walks an input directory for candidate files. Re-invoking Scan on
// an unchanged tree yields the same enumeration in the same order.
type Scanner struct {
	InputDir  string
	OutputDir string
}

// Scan returns the candidate file paths under InputDir, sorted
// lexicographically. Directories are skipped, as is the output directory
// subtree when it is nested inside the input tree, and any file that is an
// output artifact of a prior run (same name already present in OutputDir).
// Zero-length files are returned as candidates so the validator can record
// their rejection.
func (s Scanner) Scan() ([]string, error) {
	info, err := os.Stat(s.InputDir)
	if err != nil {
		return nil, services.Wrap(services.ErrDiscovery, "discovery", "scan", "input location unavailable", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrDiscovery, "discovery", "scan", "input location is not a directory", nil)
	}

	var files []string
	walkErr := filepath.WalkDir(s.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if s.OutputDir != "" && sameOrUnder(path, s.OutputDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if s.isPriorArtifact(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, services.Wrap(services.ErrDiscovery, "discovery", "scan", "input location not readable", walkErr)
	}

	sort.Strings(files)
	return files, nil
}

// isPriorArtifact reports whether a candidate is a converted output placed
// back into the input tree: an .mp4 whose exact name exists in OutputDir.
func (s Scanner) isPriorArtifact(path string) bool {
	if s.OutputDir == "" {
		return false
	}
	if !strings.EqualFold(filepath.Ext(path), ".mp4") {
		return false
	}
	_, err := os.Stat(filepath.Join(s.OutputDir, filepath.Base(path)))
	return err == nil
}

func sameOrUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
