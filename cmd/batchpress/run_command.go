package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"batchpress/internal/config"
	"batchpress/internal/deps"
	"batchpress/internal/journal"
	"batchpress/internal/logging"
	"batchpress/internal/pipeline"
	"batchpress/internal/services"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var workersFlag int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert every candidate file in the input location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workersFlag > 0 {
				cfg.Pipeline.Workers = workersFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runPipeline(cmd, cfg)
		},
	}

	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Override the configured worker count")
	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config) error {
	sigCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, closer, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	// The lock lives next to the outputs it guards: name reservations are
	// only safe against one writer per output tree.
	lock := flock.New(filepath.Join(cfg.Paths.OutputDir, ".batchpress.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return errors.New("another batchpress run is already in progress")
	}
	defer func() { _ = lock.Unlock() }()

	statuses := deps.CheckBinaries(deps.ForConfig(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "check",
			"required tools not found: "+strings.Join(missing, ", ")+" (see `batchpress check`)", nil)
	}
	if space := deps.CheckFreeSpace(cfg.Paths.OutputDir, 0); !space.Available {
		logger.Warn("output filesystem is low on space", logging.String("detail", space.Detail))
	}

	var opts []pipeline.Option
	if cfg.Journal.Enabled {
		ledger, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = ledger.Close() }()
		opts = append(opts, pipeline.WithRecorder(ledger))
	}

	orchestrator := pipeline.New(cfg, logger, opts...)
	result, runErr := orchestrator.Run(sigCtx)

	printRunSummary(cmd.OutOrStdout(), result)

	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", result.Failed, result.Total())
	}
	return nil
}
