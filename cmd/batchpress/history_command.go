package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"batchpress/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the audit journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("the audit journal is disabled; set journal.enabled = true in the configuration")
			}

			ledger, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer func() { _ = ledger.Close() }()

			out := cmd.OutOrStdout()
			if runID != "" {
				files, err := ledger.FilesForRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintf(out, "No records for run %s\n", runID)
					return nil
				}
				rows := make([][]string, 0, len(files))
				for _, rec := range files {
					rows = append(rows, []string{
						rec.SourcePath, rec.State, rec.ErrorKind, rec.Classification,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Source", "State", "Error", "Result"}, rows))
				return nil
			}

			runs, err := ledger.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.RunID,
					run.StartedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%d", run.Succeeded),
					fmt.Sprintf("%d", run.Failed),
					fmt.Sprintf("%d", run.Skipped),
					formatSignedBytes(run.SpaceSaved()),
					yesNo(run.Aborted),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Done", "Failed", "Skipped", "Saved", "Aborted"},
				rows,
				3, 4, 5, 6,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show per-file records for one run")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
