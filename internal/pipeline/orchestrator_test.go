package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"batchpress/internal/compare"
	"batchpress/internal/config"
	"batchpress/internal/logging"
	"batchpress/internal/services"
	"batchpress/internal/services/ffmpeg"
	"batchpress/internal/services/ffprobe"
	"batchpress/internal/testsupport"
)

// fakeProber answers Inspect from a function, tracking per-path call counts
// so tests can assert retry behavior and that validation short-circuits.
type fakeProber struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(path string, call int) (ffprobe.Metadata, error)
}

func newFakeProber(fn func(path string, call int) (ffprobe.Metadata, error)) *fakeProber {
	return &fakeProber{calls: make(map[string]int), fn: fn}
}

func (p *fakeProber) Inspect(_ context.Context, path string) (ffprobe.Metadata, error) {
	p.mu.Lock()
	p.calls[path]++
	call := p.calls[path]
	p.mu.Unlock()
	return p.fn(path, call)
}

func (p *fakeProber) callCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

// fakeConverter writes a small output file on success so the uniqueness
// resolver sees claimed names on disk, like the real encoder client does.
type fakeConverter struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(input string, call int) error
}

func newFakeConverter(fn func(input string, call int) error) *fakeConverter {
	return &fakeConverter{calls: make(map[string]int), fn: fn}
}

func (c *fakeConverter) Convert(_ context.Context, inputPath, outputPath string, _ ffmpeg.Params) error {
	c.mu.Lock()
	c.calls[inputPath]++
	call := c.calls[inputPath]
	c.mu.Unlock()
	if c.fn != nil {
		if err := c.fn(inputPath, call); err != nil {
			return err
		}
	}
	return os.WriteFile(outputPath, []byte("converted"), 0o644)
}

func sourceMeta(size int64) ffprobe.Metadata {
	return ffprobe.Metadata{
		Container:       "matroska",
		DurationSeconds: 120,
		VideoCodec:      "h264",
		AudioCodec:      "dts",
		SizeBytes:       size,
	}
}

func outputMeta(size int64, duration float64) ffprobe.Metadata {
	return ffprobe.Metadata{
		Container:       "mov,mp4,m4a,3gp,3g2,mj2",
		DurationSeconds: duration,
		VideoCodec:      "h264",
		AudioCodec:      "aac",
		SizeBytes:       size,
	}
}

// probeByLocation is the common happy-path prober: source files probe large,
// converted outputs probe small with the same duration.
func probeByLocation(cfg *config.Config) func(string, int) (ffprobe.Metadata, error) {
	return func(path string, _ int) (ffprobe.Metadata, error) {
		if strings.HasPrefix(path, cfg.Paths.OutputDir) {
			return outputMeta(400, 120), nil
		}
		return sourceMeta(1000), nil
	}
}

func newTestOrchestrator(cfg *config.Config, prober Prober, converter Converter) *Orchestrator {
	return New(cfg, logging.NewNop(), WithProber(prober), WithConverter(converter))
}

func TestRunConvertsAllCandidates(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "a movie.mkv"), "xx")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "season 1", "episode.mov"), "yy")

	prober := newFakeProber(probeByLocation(cfg))
	converter := newFakeConverter(nil)
	orc := newTestOrchestrator(cfg, prober, converter)

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 0 || result.Skipped != 0 {
		t.Fatalf("counts = %d/%d/%d, want 2/0/0", result.Succeeded, result.Failed, result.Skipped)
	}
	if result.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", result.Total())
	}
	if saved := result.SpaceSaved(); saved != 1200 {
		t.Errorf("SpaceSaved() = %d, want 1200", saved)
	}
	for _, outcome := range result.Files {
		if outcome.State != StateDone {
			t.Errorf("%s: state = %s, want %s", outcome.SourcePath, outcome.State, StateDone)
		}
		if outcome.Pre == nil || outcome.Post == nil || outcome.Report == nil {
			t.Errorf("%s: done outcome missing metadata or report", outcome.SourcePath)
		}
		if outcome.Report != nil && outcome.Report.Classification != compare.Improved {
			t.Errorf("%s: classification = %s, want %s", outcome.SourcePath, outcome.Report.Classification, compare.Improved)
		}
		if _, statErr := os.Stat(outcome.OutputPath); statErr != nil {
			t.Errorf("%s: output missing: %v", outcome.SourcePath, statErr)
		}
	}
}

func TestRunEmptyInputDir(t *testing.T) {
	cfg := testsupport.Config(t)
	prober := newFakeProber(probeByLocation(cfg))
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total() != 0 || result.Aborted {
		t.Fatalf("empty run: total=%d aborted=%v", result.Total(), result.Aborted)
	}
}

func TestZeroByteFileFailsValidationWithoutProbing(t *testing.T) {
	cfg := testsupport.Config(t)
	empty := testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "empty.mkv"), "")

	prober := newFakeProber(probeByLocation(cfg))
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed)
	}
	outcome := result.Files[0]
	if outcome.ErrorKind != "validation" {
		t.Errorf("ErrorKind = %q, want %q", outcome.ErrorKind, "validation")
	}
	if !strings.Contains(outcome.ErrorMessage, "empty") {
		t.Errorf("ErrorMessage = %q, want reason %q", outcome.ErrorMessage, "empty")
	}
	if n := prober.callCount(empty); n != 0 {
		t.Errorf("prober called %d times for a zero-byte file", n)
	}
}

func TestUnsupportedExtensionFailsValidation(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "notes.txt"), "hello")

	orc := newTestOrchestrator(cfg, newFakeProber(probeByLocation(cfg)), newFakeConverter(nil))
	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Files[0].ErrorKind != "validation" {
		t.Fatalf("outcome = %+v, want validation failure", result.Files[0])
	}
}

func TestFileWithoutVideoStreamFails(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "audiobook.mkv"), "xx")

	prober := newFakeProber(func(path string, _ int) (ffprobe.Metadata, error) {
		meta := sourceMeta(1000)
		meta.VideoCodec = ""
		return meta, nil
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Files[0].ErrorKind != "probe-parse" {
		t.Fatalf("outcome = %+v, want probe-parse failure", result.Files[0])
	}
}

func TestRunFatalProbeErrorAbortsAndDrains(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.Workers = 1
	cfg.Pipeline.QueueSize = 1
	for i := 0; i < 6; i++ {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, fmt.Sprintf("file%d.mkv", i)), "xx")
	}

	prober := newFakeProber(func(path string, _ int) (ffprobe.Metadata, error) {
		return ffprobe.Metadata{}, services.Wrap(services.ErrProbeExecution, "prober", "inspect", "binary missing", nil)
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err == nil {
		t.Fatal("Run returned nil error for a run-fatal failure")
	}
	if !result.Aborted || !services.IsRunFatal(result.AbortError) {
		t.Fatalf("aborted=%v abortErr=%v, want run-fatal abort", result.Aborted, result.AbortError)
	}
	if result.Total() != 6 {
		t.Fatalf("Total() = %d, want 6: every file must be accounted for", result.Total())
	}
	if result.Failed < 1 {
		t.Errorf("Failed = %d, want at least the triggering file", result.Failed)
	}
	if result.Skipped < 1 {
		t.Errorf("Skipped = %d, want undispatched files marked skipped", result.Skipped)
	}
	if result.Failed+result.Skipped != 6 {
		t.Errorf("failed+skipped = %d, want 6", result.Failed+result.Skipped)
	}
}

func TestHaltDoesNotProcessQueuedJobs(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.Workers = 1
	cfg.Pipeline.QueueSize = 4
	for _, name := range []string{"a.mkv", "b.mkv", "c.mkv", "d.mkv", "e.mkv"} {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, name), "xx")
	}

	// The first file is run-fatal; the rest probe slowly enough that the
	// halt lands while the queue still holds undispatched work.
	prober := newFakeProber(func(path string, call int) (ffprobe.Metadata, error) {
		if filepath.Base(path) == "a.mkv" {
			return ffprobe.Metadata{}, services.Wrap(services.ErrProbeExecution, "prober", "inspect", "binary missing", nil)
		}
		time.Sleep(50 * time.Millisecond)
		return probeByLocation(cfg)(path, call)
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err == nil {
		t.Fatal("Run returned nil error for a run-fatal failure")
	}
	if result.Total() != 5 {
		t.Fatalf("Total() = %d, want 5", result.Total())
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want only the triggering file", result.Failed)
	}
	// At most the single job already executing when the halt landed may
	// finish; everything still queued must be skipped.
	if result.Succeeded > 1 {
		t.Errorf("Succeeded = %d: queued jobs were fully processed after the halt", result.Succeeded)
	}
	if result.Skipped < 3 {
		t.Errorf("Skipped = %d, want at least 3", result.Skipped)
	}
}

func TestCancellationMidProbeMarksFileSkipped(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "interrupted.mkv"), "xx")

	ctx, cancel := context.WithCancel(context.Background())
	prober := newFakeProber(func(string, int) (ffprobe.Metadata, error) {
		cancel()
		return ffprobe.Metadata{}, context.Canceled
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Failed != 0 || result.Skipped != 1 {
		t.Fatalf("failed=%d skipped=%d, want 0/1: interruption is not a file failure", result.Failed, result.Skipped)
	}
	outcome := result.Files[0]
	if !outcome.Skipped || outcome.ErrorKind != "" {
		t.Fatalf("outcome = %+v, want skipped with no error kind", outcome)
	}
}

func TestProbeTimeoutRetriesOnceThenSucceeds(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.TimeoutRetries = 1
	source := testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "slow.mkv"), "xx")

	prober := newFakeProber(func(path string, call int) (ffprobe.Metadata, error) {
		if path == source && call == 1 {
			return ffprobe.Metadata{}, services.Wrap(services.ErrProbeTimeout, "prober", "inspect", "deadline exceeded", nil)
		}
		return probeByLocation(cfg)(path, call)
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, want 1 after retry", result.Succeeded)
	}
	if n := prober.callCount(source); n != 2 {
		t.Errorf("prober called %d times for source, want 2", n)
	}
}

func TestProbeTimeoutExhaustsRetries(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.TimeoutRetries = 1
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "slow.mkv"), "xx")

	prober := newFakeProber(func(string, int) (ffprobe.Metadata, error) {
		return ffprobe.Metadata{}, services.Wrap(services.ErrProbeTimeout, "prober", "inspect", "deadline exceeded", nil)
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcome := result.Files[0]
	if outcome.State != StateFailed || outcome.ErrorKind != "probe-timeout" {
		t.Fatalf("outcome = %s/%s, want failed/probe-timeout", outcome.State, outcome.ErrorKind)
	}
}

func TestConversionTimeoutRetriesThenSucceeds(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.TimeoutRetries = 1
	source := testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "big.mkv"), "xx")

	converter := newFakeConverter(func(input string, call int) error {
		if call == 1 {
			return services.Wrap(services.ErrConversionTimeout, "converter", "convert", "killed after deadline", nil)
		}
		return nil
	})
	orc := newTestOrchestrator(cfg, newFakeProber(probeByLocation(cfg)), converter)

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("Succeeded = %d, want 1 after conversion retry", result.Succeeded)
	}
	if n := converter.calls[source]; n != 2 {
		t.Errorf("converter called %d times, want 2", n)
	}
}

func TestConversionErrorIsNotRetried(t *testing.T) {
	cfg := testsupport.Config(t)
	cfg.Pipeline.TimeoutRetries = 2
	source := testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "bad.mkv"), "xx")

	converter := newFakeConverter(func(string, int) error {
		return services.Wrap(services.ErrConversion, "converter", "convert", "exit status 1", nil)
	})
	orc := newTestOrchestrator(cfg, newFakeProber(probeByLocation(cfg)), converter)

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Files[0].ErrorKind != "conversion" {
		t.Fatalf("ErrorKind = %q, want conversion", result.Files[0].ErrorKind)
	}
	if n := converter.calls[source]; n != 1 {
		t.Errorf("converter called %d times, want 1 (non-timeout errors never retry)", n)
	}
}

func TestCollidingBaseNamesGetDistinctOutputs(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "My Movie!.mkv"), "xx")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "extras", "My  Movie.mov"), "yy")

	orc := newTestOrchestrator(cfg, newFakeProber(probeByLocation(cfg)), newFakeConverter(nil))
	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Succeeded != 2 {
		t.Fatalf("Succeeded = %d, want 2", result.Succeeded)
	}
	var outputs []string
	for _, outcome := range result.Files {
		outputs = append(outputs, filepath.Base(outcome.OutputPath))
	}
	sort.Strings(outputs)
	want := []string{"My_Movie.mp4", "My_Movie_1.mp4"}
	if outputs[0] != want[0] || outputs[1] != want[1] {
		t.Fatalf("outputs = %v, want %v", outputs, want)
	}
}

func TestDurationDriftIsDoneButRegressed(t *testing.T) {
	cfg := testsupport.Config(t)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "truncated.mkv"), "xx")

	prober := newFakeProber(func(path string, _ int) (ffprobe.Metadata, error) {
		if strings.HasPrefix(path, cfg.Paths.OutputDir) {
			return outputMeta(400, 90), nil
		}
		return sourceMeta(1000), nil
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcome := result.Files[0]
	if outcome.State != StateDone {
		t.Fatalf("state = %s, want %s: drift must not fail the file", outcome.State, StateDone)
	}
	if outcome.Report == nil || !outcome.Report.DurationDrift {
		t.Fatal("report missing duration drift flag")
	}
	if outcome.Report.Classification != compare.Regressed {
		t.Errorf("classification = %s, want %s", outcome.Report.Classification, compare.Regressed)
	}
}

func TestCancelledContextSkipsEverything(t *testing.T) {
	cfg := testsupport.Config(t)
	for i := 0; i < 3; i++ {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, fmt.Sprintf("file%d.mkv", i)), "xx")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orc := newTestOrchestrator(cfg, newFakeProber(probeByLocation(cfg)), newFakeConverter(nil))
	result, err := orc.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !result.Aborted || result.Skipped != 3 {
		t.Fatalf("aborted=%v skipped=%d, want true/3", result.Aborted, result.Skipped)
	}
}

// terminalStates runs a mixed batch and returns source → state/error-kind.
func terminalStates(t *testing.T, workers int) map[string]string {
	t.Helper()
	cfg := testsupport.Config(t)
	cfg.Pipeline.Workers = workers

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "good.mkv"), "xx")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "empty.mkv"), "")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "notes.txt"), "zz")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InputDir, "corrupt.mkv"), "yy")

	prober := newFakeProber(func(path string, call int) (ffprobe.Metadata, error) {
		if filepath.Base(path) == "corrupt.mkv" {
			return ffprobe.Metadata{}, services.Wrap(services.ErrProbeParse, "prober", "inspect", "malformed output", nil)
		}
		return probeByLocation(cfg)(path, call)
	})
	orc := newTestOrchestrator(cfg, prober, newFakeConverter(nil))

	result, err := orc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run(workers=%d): %v", workers, err)
	}
	states := make(map[string]string, len(result.Files))
	for _, outcome := range result.Files {
		states[filepath.Base(outcome.SourcePath)] = string(outcome.State) + "/" + outcome.ErrorKind
	}
	return states
}

func TestWorkerCountDoesNotChangeTerminalStates(t *testing.T) {
	sequential := terminalStates(t, 1)
	concurrent := terminalStates(t, 4)
	if len(sequential) != len(concurrent) {
		t.Fatalf("result sizes differ: %d vs %d", len(sequential), len(concurrent))
	}
	for name, want := range sequential {
		if got := concurrent[name]; got != want {
			t.Errorf("%s: %q with 4 workers, %q with 1", name, got, want)
		}
	}
}
