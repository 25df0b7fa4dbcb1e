package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"wspsr/internal/daemon"
	"wspsr/internal/daemonrun"
	"wspsr/internal/queue"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var start bool
	var noStart bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run [dir]",
		Short: "Watch a directory and transcribe discovered tracks until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if start && noStart {
				return fmt.Errorf("--start and --no-start are mutually exclusive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := daemonrun.Options{LogLevel: logLevel}
			if len(args) == 1 {
				opts.WatchDir = args[0]
			}
			switch {
			case start:
				enabled := true
				opts.AutoStart = &enabled
			case noStart:
				enabled := false
				opts.AutoStart = &enabled
			}

			report, runErr := daemonrun.Run(cmd.Context(), cfg, opts)
			if len(report.Rows) > 0 {
				printReport(cmd.OutOrStdout(), report)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&start, "start", false, "Transcribe tracks as soon as they are discovered")
	cmd.Flags().BoolVar(&noStart, "no-start", false, "Only register discovered tracks")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	return cmd
}

func printReport(out io.Writer, report daemon.Report) {
	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, []string{
			row.Track.Key,
			row.Status.Label(),
			formatSize(row.Track.Size),
			formatDuration(row.Track),
			orDash(row.Message),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Track", "Status", "Size", "Duration", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	summary := report.Summary()
	fmt.Fprintf(out, "%d tracks:", summary.Total())
	for _, status := range queue.AllStatuses() {
		if count := summary[status]; count > 0 {
			fmt.Fprintf(out, " %s=%d", status.Label(), count)
		}
	}
	fmt.Fprintln(out)
}
