package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"batchpress/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level   string
	Format  string // console, json, or auto
	LogPath string // optional JSON file sink; empty disables it
	Console io.Writer
}

// New constructs a slog logger using the provided options. The returned
// closer releases the log file sink, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}

	format, err := resolveFormat(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	var handlers []slog.Handler
	switch format {
	case "json":
		handlers = append(handlers, slog.NewJSONHandler(console, &slog.HandlerOptions{Level: levelVar}))
	case "console":
		handlers = append(handlers, newConsoleHandler(console, levelVar))
	}

	var closer io.Closer
	if path := strings.TrimSpace(opts.LogPath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		closer = file
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: levelVar}))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer, nil
	}
	return slog.New(newFanoutHandler(handlers...)), closer, nil
}

// NewFromConfig creates a logger using application config, writing the JSON
// record stream to <log_dir>/batchpress.log alongside the console output.
func NewFromConfig(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	logPath := ""
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "batchpress.log")
	}
	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		LogPath: logPath,
	})
}

func resolveFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return "json", nil
	case "console":
		return "console", nil
	case "auto", "":
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return "console", nil
		}
		return "json", nil
	default:
		return "", fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
