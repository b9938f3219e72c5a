package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"batchpress/internal/config"
	"batchpress/internal/discovery"
	"batchpress/internal/logging"
	"batchpress/internal/naming"
	"batchpress/internal/services"
	"batchpress/internal/services/ffmpeg"
	"batchpress/internal/services/ffprobe"
)

// Prober inspects a media file and returns its metadata.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Metadata, error)
}

// Converter transcodes an input into the reserved output path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string, params ffmpeg.Params) error
}

// Recorder persists per-file audit records. Implementations may be nil-safe
// no-ops; the orchestrator tolerates recorder failures.
type Recorder interface {
	BeginRun(ctx context.Context, runID string, startedAt time.Time) error
	RecordFile(ctx context.Context, runID string, outcome FileOutcome) error
	FinishRun(ctx context.Context, result *PipelineResult) error
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithProber substitutes the prober client.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.prober = p
		}
	}
}

// WithConverter substitutes the converter client.
func WithConverter(c Converter) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.converter = c
		}
	}
}

// WithRecorder attaches an audit recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// Orchestrator owns every MediaFile from discovery to its terminal state and
// folds outcomes into the run-level PipelineResult. All tunables come from
// the config value supplied at construction.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	prober    Prober
	converter Converter
	recorder  Recorder
	resolver  *naming.Resolver
}

// New constructs an orchestrator with real tool clients unless options
// substitute them.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
		prober: ffprobe.NewClient(
			ffprobe.WithBinary(cfg.Tools.FFprobe),
			ffprobe.WithTimeout(cfg.ProbeTimeout()),
		),
		converter: ffmpeg.NewClient(
			ffmpeg.WithBinary(cfg.Tools.FFmpeg),
			ffmpeg.WithTimeout(cfg.ConvertTimeout()),
		),
		resolver: naming.NewResolver(cfg.Paths.OutputDir),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run discovers candidates and executes each file's state machine across the
// configured worker pool. It returns the aggregate result together with the
// run-fatal error, if any; per-file failures are reported in the result
// only. A cancelled context stops dispatch and lets in-flight work drain.
func (o *Orchestrator) Run(ctx context.Context) (*PipelineResult, error) {
	result := &PipelineResult{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := o.logger.With(logging.String(logging.FieldRunID, result.RunID))

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("input_dir", o.cfg.Paths.InputDir),
		logging.String("output_dir", o.cfg.Paths.OutputDir),
		logging.Int("workers", o.cfg.Pipeline.Workers),
	)

	scanner := discovery.Scanner{InputDir: o.cfg.Paths.InputDir, OutputDir: o.cfg.Paths.OutputDir}
	paths, err := scanner.Scan()
	if err != nil {
		return o.abort(ctx, logger, result, err)
	}
	if len(paths) == 0 {
		logger.Warn("no files found in the input location",
			logging.String(logging.FieldEventType, "run_empty"))
		return o.finish(ctx, logger, result), nil
	}

	if o.recorder != nil {
		if err := o.recorder.BeginRun(ctx, result.RunID, result.StartedAt); err != nil {
			logger.Warn("audit journal unavailable", logging.Error(err))
		}
	}

	files := make([]*MediaFile, len(paths))
	for i, path := range paths {
		files[i] = &MediaFile{SourcePath: path, State: StateDiscovered}
	}
	logger.Info("discovery complete",
		logging.String(logging.FieldEventType, "discovery_complete"),
		logging.Int("candidates", len(files)),
	)

	params := ffmpeg.Params{
		VideoCodec:   o.cfg.Encoding.VideoCodec,
		AudioCodec:   o.cfg.Encoding.AudioCodec,
		CRF:          o.cfg.Encoding.CRF,
		Preset:       o.cfg.Encoding.Preset,
		AudioBitrate: o.cfg.Encoding.AudioBitrate,
		MaxHeight:    o.cfg.Encoding.MaxHeight,
	}

	jobs := make(chan *ConversionJob, o.cfg.Pipeline.QueueSize)
	outcomes := make(chan FileOutcome)
	stopDispatch := make(chan struct{})
	var stopOnce sync.Once
	halt := func() { stopOnce.Do(func() { close(stopDispatch) }) }

	var workers sync.WaitGroup
	for i := 0; i < o.cfg.Pipeline.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for job := range jobs {
				// A halted run finishes only the jobs already executing;
				// anything still sitting in the queue is skipped.
				select {
				case <-stopDispatch:
					outcomes <- skippedOutcome(job.File)
					continue
				case <-ctx.Done():
					outcomes <- skippedOutcome(job.File)
					continue
				default:
				}
				outcomes <- o.processFile(ctx, logger, job)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, file := range files {
			// Checked separately first: a ready queue slot must not win the
			// select against an already-stopped run.
			select {
			case <-stopDispatch:
				outcomes <- skippedOutcome(file)
				continue
			case <-ctx.Done():
				outcomes <- skippedOutcome(file)
				continue
			default:
			}
			select {
			case <-stopDispatch:
				outcomes <- skippedOutcome(file)
			case <-ctx.Done():
				outcomes <- skippedOutcome(file)
			case jobs <- &ConversionJob{File: file, Params: params}:
			}
		}
	}()

	for range files {
		outcome := <-outcomes
		result.record(outcome)
		if o.recorder != nil && !outcome.Skipped {
			if err := o.recorder.RecordFile(ctx, result.RunID, outcome); err != nil {
				logger.Warn("audit record failed",
					logging.String(logging.FieldFile, outcome.SourcePath),
					logging.Error(err),
				)
			}
		}
		if outcome.Err != nil && services.IsRunFatal(outcome.Err) {
			if result.AbortError == nil {
				result.Aborted = true
				result.AbortError = outcome.Err
				logger.Error("run-fatal error, draining in-flight work",
					logging.String(logging.FieldEventType, "run_abort"),
					logging.String(logging.FieldErrorKind, services.Kind(outcome.Err)),
					logging.Error(outcome.Err),
				)
			}
			halt()
		}
	}
	workers.Wait()

	if ctx.Err() != nil && !result.Aborted {
		result.Aborted = true
		result.AbortError = ctx.Err()
	}
	return o.finish(ctx, logger, result), result.AbortError
}

func (o *Orchestrator) abort(ctx context.Context, logger *slog.Logger, result *PipelineResult, err error) (*PipelineResult, error) {
	result.Aborted = true
	result.AbortError = err
	logger.Error("run aborted",
		logging.String(logging.FieldEventType, "run_abort"),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return o.finish(ctx, logger, result), err
}

func (o *Orchestrator) finish(ctx context.Context, logger *slog.Logger, result *PipelineResult) *PipelineResult {
	result.FinishedAt = time.Now().UTC()
	if o.recorder != nil {
		if err := o.recorder.FinishRun(ctx, result); err != nil {
			logger.Warn("audit journal finalize failed", logging.Error(err))
		}
	}
	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Int64("space_saved_bytes", result.SpaceSaved()),
		logging.Bool("aborted", result.Aborted),
		logging.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result
}

func skippedOutcome(file *MediaFile) FileOutcome {
	return FileOutcome{
		SourcePath: file.SourcePath,
		State:      file.State,
		Skipped:    true,
	}
}
