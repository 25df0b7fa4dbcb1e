package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wspsr/internal/deps"
	"wspsr/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and session directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				state := "ok"
				switch {
				case !status.Available && status.Optional:
					state = "missing (optional)"
				case !status.Available:
					state = "missing"
				}
				location := status.Path
				if !status.Available {
					location = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, state, orDash(location)})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Tool", "Command", "Status", "Path"}, rows, nil))

			results := preflight.RunAll(cfg)
			dirRows := make([][]string, 0, len(results))
			for _, result := range results {
				dirRows = append(dirRows, []string{result.Name, yesNo(result.Passed), result.Detail})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Directory", "OK", "Detail"}, dirRows, nil))

			missing := deps.MissingRequired(statuses)
			if len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Command)
				}
				return fmt.Errorf("missing required tools: %s", strings.Join(names, ", "))
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d directory checks failed", len(failed))
			}
			return nil
		},
	}
}
