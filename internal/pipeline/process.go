package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"batchpress/internal/compare"
	"batchpress/internal/logging"
	"batchpress/internal/naming"
	"batchpress/internal/services"
	"batchpress/internal/services/ffprobe"
	"batchpress/internal/validation"
)

// processFile runs one file's state machine to a terminal state. It executes
// entirely on the calling worker goroutine; the file is not shared while it
// runs.
func (o *Orchestrator) processFile(ctx context.Context, logger *slog.Logger, job *ConversionJob) FileOutcome {
	file := job.File
	flog := logger.With(logging.String(logging.FieldFile, file.SourcePath))

	if err := validation.Check(file.SourcePath, o.cfg.ExtensionAllowed); err != nil {
		return o.fail(flog, file, err)
	}
	o.transition(flog, file, StateValidated)

	pre, err := o.probeWithRetry(ctx, file.SourcePath)
	if err != nil {
		return o.fail(flog, file, err)
	}
	file.Pre = &pre
	o.transition(flog, file, StateProbedPre)

	if !pre.HasVideo() {
		return o.fail(flog, file, services.Wrap(services.ErrProbeParse, "prober", "inspect", "file does not contain video", nil))
	}

	outputPath, err := o.resolver.Reserve(naming.SourceBase(file.SourcePath))
	if err != nil {
		return o.fail(flog, file, err)
	}
	file.OutputPath = outputPath

	o.transition(flog, file, StateConverting)
	if err := o.convertWithRetry(ctx, file, job); err != nil {
		return o.fail(flog, file, err)
	}
	o.transition(flog, file, StateConverted)

	post, err := o.probeWithRetry(ctx, file.OutputPath)
	if err != nil {
		return o.fail(flog, file, err)
	}
	file.Post = &post
	o.transition(flog, file, StateProbedPost)

	report := compare.Compare(*file.Pre, *file.Post, compare.Options{
		DurationToleranceSeconds: o.cfg.Pipeline.DurationToleranceSeconds,
		NeutralBandPercent:       o.cfg.Pipeline.NeutralBandPercent,
	})
	o.transition(flog, file, StateCompared)
	if report.DurationDrift {
		flog.Warn("duration drifted beyond tolerance",
			logging.String(logging.FieldEventType, "duration_drift"),
			logging.Float64("pre_seconds", file.Pre.DurationSeconds),
			logging.Float64("post_seconds", file.Post.DurationSeconds),
			logging.Float64("tolerance_seconds", o.cfg.Pipeline.DurationToleranceSeconds),
		)
	}
	o.transition(flog, file, StateDone)
	flog.Info("file converted",
		logging.String(logging.FieldEventType, "file_done"),
		logging.String("output", file.OutputPath),
		logging.Int64("size_delta_bytes", report.SizeDeltaBytes),
		logging.Float64("size_delta_percent", report.SizeDeltaPercent),
		logging.String("classification", string(report.Classification)),
	)

	return FileOutcome{
		SourcePath: file.SourcePath,
		OutputPath: file.OutputPath,
		State:      file.State,
		Pre:        file.Pre,
		Post:       file.Post,
		Report:     &report,
	}
}

func (o *Orchestrator) probeWithRetry(ctx context.Context, path string) (ffprobe.Metadata, error) {
	var meta ffprobe.Metadata
	err := o.withRetry(ctx, path, func() error {
		var probeErr error
		meta, probeErr = o.prober.Inspect(ctx, path)
		return probeErr
	})
	return meta, err
}

func (o *Orchestrator) convertWithRetry(ctx context.Context, file *MediaFile, job *ConversionJob) error {
	return o.withRetry(ctx, file.SourcePath, func() error {
		return o.converter.Convert(ctx, file.SourcePath, file.OutputPath, job.Params)
	})
}

// withRetry re-runs op for timeout errors only, up to the configured bounded
// retry count. Every other error kind is returned immediately.
func (o *Orchestrator) withRetry(ctx context.Context, path string, op func() error) error {
	attempts := 1 + o.cfg.Pipeline.TimeoutRetries
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !services.IsRetryable(err) || attempt == attempts || ctx.Err() != nil {
			return err
		}
		o.logger.Warn("transient timeout, retrying",
			logging.String(logging.FieldFile, path),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
		)
	}
	return err
}

func (o *Orchestrator) transition(logger *slog.Logger, file *MediaFile, to State) {
	from := file.State
	file.State = to
	logger.Info("state changed",
		logging.String(logging.FieldEventType, "state_change"),
		logging.String(logging.FieldFromState, string(from)),
		logging.String(logging.FieldToState, string(to)),
	)
}

func (o *Orchestrator) fail(logger *slog.Logger, file *MediaFile, err error) FileOutcome {
	if errors.Is(err, context.Canceled) {
		// Cancellation mid-stage interrupted the file; it did not fail on
		// its own merits and is reported as skipped.
		logger.Warn("file interrupted by run cancellation",
			logging.String(logging.FieldEventType, "file_interrupted"),
			logging.String(logging.FieldFromState, string(file.State)),
		)
		return FileOutcome{
			SourcePath: file.SourcePath,
			OutputPath: file.OutputPath,
			State:      file.State,
			Skipped:    true,
			Err:        err,
		}
	}

	from := file.State
	file.State = StateFailed
	file.Err = err
	logger.Error("file failed",
		logging.String(logging.FieldEventType, "state_change"),
		logging.String(logging.FieldFromState, string(from)),
		logging.String(logging.FieldToState, string(StateFailed)),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return FileOutcome{
		SourcePath:   file.SourcePath,
		OutputPath:   file.OutputPath,
		State:        StateFailed,
		Err:          err,
		ErrorKind:    services.Kind(err),
		ErrorMessage: err.Error(),
		Pre:          file.Pre,
		Post:         file.Post,
	}
}
