package ffmpeg

import (
	"fmt"
	"strconv"
)

// Params is the tuned encoder parameter set applied to a conversion.
type Params struct {
	VideoCodec   string
	AudioCodec   string
	CRF          int
	Preset       string
	AudioBitrate string
	// MaxHeight caps output height while preserving aspect ratio; 0 keeps
	// the source resolution.
	MaxHeight int
}

// args builds the fixed ffmpeg invocation for one conversion. The output
// container is forced to MP4 explicitly so the temporary output path does
// not need an .mp4 extension.
func (p Params) args(inputPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-c:v", p.VideoCodec,
		"-crf", strconv.Itoa(p.CRF),
		"-preset", p.Preset,
	}
	if p.MaxHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:'min(ih,%d)'", p.MaxHeight))
	}
	args = append(args,
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-movflags", "+faststart",
		"-f", "mp4",
		outputPath,
	)
	return args
}
