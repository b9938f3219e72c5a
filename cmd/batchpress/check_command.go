package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"batchpress/internal/deps"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools and output filesystem headroom",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := deps.CheckBinaries(deps.ForConfig(cfg))
			statuses = append(statuses, deps.CheckFreeSpace(cfg.Paths.OutputDir, 0))

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				detail := status.Detail
				if !status.Available {
					state = "missing"
				}
				rows = append(rows, []string{status.Name, status.Command, state, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Command", "Status", "Detail"},
				rows,
			))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return errors.New("required dependencies are missing")
			}
			return nil
		},
	}
}
