package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the default floor for the output filesystem. Conversions
// write a temporary artifact before renaming, so a nearly full disk fails
// mid-encode rather than up front without this check.
const minFreeBytes = 1 << 30 // 1 GiB

// CheckFreeSpace reports whether the filesystem holding dir has at least
// minBytes available to the calling user. A minBytes of zero applies the
// default floor.
func CheckFreeSpace(dir string, minBytes uint64) Status {
	if minBytes == 0 {
		minBytes = minFreeBytes
	}
	status := Status{
		Name:        "free space",
		Command:     dir,
		Description: "Output filesystem headroom for temporary conversion artifacts",
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		status.Detail = fmt.Sprintf("statfs %q: %v", dir, err)
		return status
	}

	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		status.Detail = fmt.Sprintf("%s free, need at least %s", formatBytes(free), formatBytes(minBytes))
		return status
	}
	status.Available = true
	status.Detail = fmt.Sprintf("%s free", formatBytes(free))
	return status
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
