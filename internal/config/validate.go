package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.InputDir == "" {
		return errors.New("paths.input_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.input_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.CRF < 0 || c.Encoding.CRF > 51 {
		return fmt.Errorf("encoding.crf must be between 0 and 51, got %d", c.Encoding.CRF)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers > 64 {
		return fmt.Errorf("pipeline.workers must be at most 64, got %d", c.Pipeline.Workers)
	}
	if len(c.Pipeline.Extensions) == 0 {
		return errors.New("pipeline.extensions must list at least one container extension")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
