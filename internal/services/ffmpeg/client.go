package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"batchpress/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the client.
type Option func(*Client)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *Client) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// WithTimeout overrides the per-conversion deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client wraps the ffmpeg command-line encoder.
type Client struct {
	binary  string
	timeout time.Duration
}

// NewClient constructs a client using defaults.
func NewClient(opts ...Option) *Client {
	client := &Client{binary: "ffmpeg", timeout: 2 * time.Hour}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Convert transcodes inputPath into outputPath using the supplied parameter
// set. The encoder writes to a hidden temporary sibling of outputPath which
// is renamed into place only after a clean exit; on any failure the partial
// output is removed.
func (c *Client) Convert(ctx context.Context, inputPath, outputPath string, params Params) error {
	if strings.TrimSpace(inputPath) == "" {
		return services.Wrap(services.ErrConversion, "converter", "encode", "empty input path", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrConversion, "converter", "encode", "empty output path", nil)
	}

	tempPath := partialPath(outputPath)
	convertCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := commandContext(convertCtx, c.binary, params.args(inputPath, tempPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		_ = os.Remove(tempPath)
		if errors.Is(convertCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrConversionTimeout, "converter", "encode", inputPath, convertCtx.Err())
		}
		if convertCtx.Err() != nil {
			// The run was cancelled under the encoder; not an encode failure.
			return convertCtx.Err()
		}
		if isExecFailure(runErr) {
			// Normalize so the orchestrator recognizes a vanished encoder
			// binary as run-fatal regardless of how exec reported it.
			return services.Wrap(services.ErrConversion, "converter", "encode", c.binary,
				fmt.Errorf("%w: %v", exec.ErrNotFound, runErr))
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return services.Wrap(services.ErrConversion, "converter", "encode", detail, runErr)
	}

	info, err := os.Stat(tempPath)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(tempPath)
		return services.Wrap(services.ErrConversion, "converter", "encode", "encoder exited cleanly but produced no output", err)
	}
	if err := os.Rename(tempPath, outputPath); err != nil {
		_ = os.Remove(tempPath)
		return services.Wrap(services.ErrConversion, "converter", "finalize", outputPath, err)
	}
	return nil
}

// partialPath returns the hidden in-progress path for an output file, in the
// same directory so the final rename is atomic.
func partialPath(outputPath string) string {
	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	return filepath.Join(dir, "."+base+".part")
}

func isExecFailure(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	return errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist)
}
