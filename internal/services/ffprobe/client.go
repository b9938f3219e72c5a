package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"batchpress/internal/services"
)

var commandContext = exec.CommandContext

// Metadata is the immutable inspection value produced by Inspect. It is
// never hand-constructed outside this package and its tests.
type Metadata struct {
	Container       string
	DurationSeconds float64
	VideoCodec      string
	AudioCodec      string
	BitRate         int64
	Width           int
	Height          int
	SizeBytes       int64
}

// HasVideo reports whether the container carries a video stream.
func (m Metadata) HasVideo() bool { return m.VideoCodec != "" }

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

// WithTimeout overrides the per-inspection deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client wraps the ffprobe command-line tool.
type Client struct {
	binary  string
	timeout time.Duration
}

// NewClient constructs a client using defaults.
func NewClient(opts ...Option) *Client {
	client := &Client{binary: "ffprobe", timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Inspect executes ffprobe against path with a fixed, deterministic argument
// set and decodes the JSON response into Metadata. Probing the same
// unchanged file twice yields equal metadata.
func (c *Client) Inspect(ctx context.Context, path string) (Metadata, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Metadata{}, services.Wrap(services.ErrProbeParse, "prober", "inspect", "empty path", nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := commandContext(probeCtx, c.binary,
		"-v", "error",
		"-hide_banner",
		"-show_format",
		"-show_streams",
		"-of", "json",
		"--", path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		switch {
		case errors.Is(probeCtx.Err(), context.DeadlineExceeded):
			return Metadata{}, services.Wrap(services.ErrProbeTimeout, "prober", "inspect", path, probeCtx.Err())
		case probeCtx.Err() != nil:
			// The run was cancelled under the probe; not a corrupt input.
			return Metadata{}, probeCtx.Err()
		case isExecFailure(err):
			return Metadata{}, services.Wrap(services.ErrProbeExecution, "prober", "inspect", c.binary, err)
		default:
			if detail == "" {
				detail = err.Error()
			}
			return Metadata{}, services.Wrap(services.ErrProbeParse, "prober", "inspect", detail, err)
		}
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Metadata{}, services.Wrap(services.ErrProbeParse, "prober", "parse", path, err)
	}
	if len(result.Streams) == 0 && result.Format.FormatName == "" {
		return Metadata{}, services.Wrap(services.ErrProbeParse, "prober", "parse", "output carried no streams or format", nil)
	}

	return c.buildMetadata(path, result), nil
}

func (c *Client) buildMetadata(path string, result Result) Metadata {
	meta := Metadata{
		Container:       result.Format.FormatName,
		DurationSeconds: result.DurationSeconds(),
		BitRate:         result.BitRate(),
		SizeBytes:       result.SizeBytes(),
	}
	if video := result.PrimaryVideoStream(); video != nil {
		meta.VideoCodec = video.CodecName
		meta.Width = video.Width
		meta.Height = video.Height
	}
	if audio := result.PrimaryAudioStream(); audio != nil {
		meta.AudioCodec = audio.CodecName
	}
	if meta.SizeBytes == 0 {
		if info, err := os.Stat(path); err == nil {
			meta.SizeBytes = info.Size()
		}
	}
	return meta
}

// isExecFailure reports whether the error means the binary could not be
// started at all, as opposed to the tool running and exiting nonzero.
func isExecFailure(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	return errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrNotExist)
}
