package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"batchpress/internal/pipeline"
)

func printRunSummary(out io.Writer, result *pipeline.PipelineResult) {
	if result == nil || result.Total() == 0 {
		fmt.Fprintln(out, "No files to convert.")
		return
	}

	rows := make([][]string, 0, len(result.Files))
	for _, outcome := range result.Files {
		rows = append(rows, fileRow(outcome))
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "State", "Size", "Result"},
		rows,
		3,
	))

	elapsed := result.FinishedAt.Sub(result.StartedAt).Round(time.Second)
	fmt.Fprintf(out, "\n%d succeeded, %d failed, %d skipped in %s\n",
		result.Succeeded, result.Failed, result.Skipped, elapsed)
	if saved := result.SpaceSaved(); result.Succeeded > 0 {
		fmt.Fprintf(out, "Space saved: %s\n", formatSignedBytes(saved))
	}
	if result.Aborted && result.AbortError != nil {
		fmt.Fprintf(out, "Run aborted: %v\n", result.AbortError)
	}
}

func fileRow(outcome pipeline.FileOutcome) []string {
	name := filepath.Base(outcome.SourcePath)
	switch {
	case outcome.Skipped:
		return []string{name, "skipped", "", "not dispatched"}
	case outcome.State == pipeline.StateDone:
		size := ""
		detail := ""
		if outcome.Report != nil {
			size = fmt.Sprintf("%+.1f%%", outcome.Report.SizeDeltaPercent)
			detail = string(outcome.Report.Classification)
			if outcome.Report.DurationDrift {
				detail += " (duration drift)"
			}
		}
		return []string{name, string(outcome.State), size, detail}
	default:
		return []string{name, string(outcome.State), "", outcome.ErrorKind}
	}
}

func formatSignedBytes(n int64) string {
	if n < 0 {
		return "-" + formatByteCount(-n)
	}
	return formatByteCount(n)
}

func formatByteCount(n int64) string {
	const unit = int64(1024)
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
