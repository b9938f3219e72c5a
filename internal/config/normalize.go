package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeEncoding()
	c.normalizePipeline()
	c.normalizeLogging()
	return c.normalizeJournal()
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	if c.Tools.ProbeTimeoutSeconds <= 0 {
		c.Tools.ProbeTimeoutSeconds = defaultProbeTimeout
	}
	if c.Tools.ConvertTimeoutSeconds <= 0 {
		c.Tools.ConvertTimeoutSeconds = defaultConvertTimeout
	}
}

func (c *Config) normalizeEncoding() {
	c.Encoding.VideoCodec = strings.TrimSpace(c.Encoding.VideoCodec)
	if c.Encoding.VideoCodec == "" {
		c.Encoding.VideoCodec = defaultVideoCodec
	}
	c.Encoding.AudioCodec = strings.TrimSpace(c.Encoding.AudioCodec)
	if c.Encoding.AudioCodec == "" {
		c.Encoding.AudioCodec = defaultAudioCodec
	}
	c.Encoding.Preset = strings.TrimSpace(c.Encoding.Preset)
	if c.Encoding.Preset == "" {
		c.Encoding.Preset = defaultPreset
	}
	c.Encoding.AudioBitrate = strings.TrimSpace(c.Encoding.AudioBitrate)
	if c.Encoding.AudioBitrate == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
	if c.Encoding.CRF <= 0 {
		c.Encoding.CRF = defaultCRF
	}
	if c.Encoding.MaxHeight < 0 {
		c.Encoding.MaxHeight = 0
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if c.Pipeline.QueueSize <= 0 {
		c.Pipeline.QueueSize = defaultQueueSize
	}
	if c.Pipeline.TimeoutRetries < 0 {
		c.Pipeline.TimeoutRetries = 0
	}
	if c.Pipeline.DurationToleranceSeconds <= 0 {
		c.Pipeline.DurationToleranceSeconds = defaultDurationTol
	}
	if c.Pipeline.NeutralBandPercent < 0 {
		c.Pipeline.NeutralBandPercent = defaultNeutralBand
	}
	if len(c.Pipeline.Extensions) == 0 {
		c.Pipeline.Extensions = defaultExtensions()
		return
	}
	normalized := make([]string, 0, len(c.Pipeline.Extensions))
	seen := make(map[string]struct{}, len(c.Pipeline.Extensions))
	for _, ext := range c.Pipeline.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		normalized = append(normalized, ext)
	}
	c.Pipeline.Extensions = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeJournal() error {
	c.Journal.Path = strings.TrimSpace(c.Journal.Path)
	if c.Journal.Path == "" {
		c.Journal.Path = defaultJournalPath
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}
