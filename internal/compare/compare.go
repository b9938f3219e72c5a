// Package compare computes before/after conversion deltas and classifies
// the outcome.
package compare

import (
	"math"

	"batchpress/internal/services/ffprobe"
)

// Classification grades a conversion outcome. It is advisory metadata: a
// regressed classification never fails the file.
type Classification string

const (
	// Improved: output is smaller and duration is preserved.
	Improved Classification = "improved"
	// Neutral: size roughly unchanged.
	Neutral Classification = "neutral"
	// Regressed: output larger than input, or duration drifted beyond
	// tolerance.
	Regressed Classification = "regressed"
)

// Options holds the comparison thresholds.
type Options struct {
	// DurationToleranceSeconds is the allowed absolute duration delta before
	// a drift anomaly is flagged.
	DurationToleranceSeconds float64
	// NeutralBandPercent is the absolute size-delta percentage within which
	// the outcome counts as Neutral.
	NeutralBandPercent float64
}

// Report is the computed delta between pre- and post-conversion metadata.
type Report struct {
	SizeDeltaBytes       int64
	SizeDeltaPercent     float64
	DurationDeltaSeconds float64
	DurationDrift        bool
	ContainerBefore      string
	ContainerAfter       string
	VideoCodecBefore     string
	VideoCodecAfter      string
	AudioCodecBefore     string
	AudioCodecAfter      string
	Classification       Classification
}

// Compare computes the delta between pre- and post-conversion metadata.
func Compare(pre, post ffprobe.Metadata, opts Options) Report {
	report := Report{
		SizeDeltaBytes:       post.SizeBytes - pre.SizeBytes,
		DurationDeltaSeconds: post.DurationSeconds - pre.DurationSeconds,
		ContainerBefore:      pre.Container,
		ContainerAfter:       post.Container,
		VideoCodecBefore:     pre.VideoCodec,
		VideoCodecAfter:      post.VideoCodec,
		AudioCodecBefore:     pre.AudioCodec,
		AudioCodecAfter:      post.AudioCodec,
	}
	if pre.SizeBytes > 0 {
		report.SizeDeltaPercent = float64(report.SizeDeltaBytes) / float64(pre.SizeBytes) * 100
	}
	report.DurationDrift = math.Abs(report.DurationDeltaSeconds) > opts.DurationToleranceSeconds
	report.Classification = classify(report, opts)
	return report
}

func classify(report Report, opts Options) Classification {
	if report.DurationDrift {
		return Regressed
	}
	if math.Abs(report.SizeDeltaPercent) <= opts.NeutralBandPercent {
		return Neutral
	}
	if report.SizeDeltaBytes < 0 {
		return Improved
	}
	return Regressed
}
