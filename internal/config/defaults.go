package config

const (
	defaultInputDir       = "~/batchpress/convert"
	defaultOutputDir      = "~/batchpress/converted"
	defaultLogDir         = "~/.local/share/batchpress/logs"
	defaultFFprobeBinary  = "ffprobe"
	defaultFFmpegBinary   = "ffmpeg"
	defaultProbeTimeout   = 60
	defaultConvertTimeout = 7200
	defaultVideoCodec     = "libx264"
	defaultAudioCodec     = "aac"
	defaultCRF            = 23
	defaultPreset         = "medium"
	defaultAudioBitrate   = "128k"
	defaultWorkers        = 1
	defaultQueueSize      = 16
	defaultTimeoutRetries = 1
	defaultDurationTol    = 1.0
	defaultNeutralBand    = 2.0
	defaultLogFormat      = "auto"
	defaultLogLevel       = "info"
	defaultJournalPath    = "~/.local/share/batchpress/journal.db"
)

func defaultExtensions() []string {
	return []string{
		".mkv", ".mp4", ".avi", ".m4v", ".mov", ".wmv", ".flv",
		".webm", ".ts", ".m2ts", ".mpg", ".mpeg", ".vob", ".ogv",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			FFprobe:               defaultFFprobeBinary,
			FFmpeg:                defaultFFmpegBinary,
			ProbeTimeoutSeconds:   defaultProbeTimeout,
			ConvertTimeoutSeconds: defaultConvertTimeout,
		},
		Encoding: Encoding{
			VideoCodec:   defaultVideoCodec,
			AudioCodec:   defaultAudioCodec,
			CRF:          defaultCRF,
			Preset:       defaultPreset,
			AudioBitrate: defaultAudioBitrate,
		},
		Pipeline: Pipeline{
			Workers:                  defaultWorkers,
			QueueSize:                defaultQueueSize,
			TimeoutRetries:           defaultTimeoutRetries,
			DurationToleranceSeconds: defaultDurationTol,
			NeutralBandPercent:       defaultNeutralBand,
			Extensions:               defaultExtensions(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: false,
			Path:    defaultJournalPath,
		},
	}
}
