package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"wspsr/internal/config"
	"wspsr/internal/discovery"
	"wspsr/internal/logging"
	"wspsr/internal/media"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Show the tracks discovery would register for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			inspector := discovery.DefaultInspector(cfg.Tools.FFprobe, logging.NewNop())
			observations, err := inspector.Inspect(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			out := cmd.OutOrStdout()
			if len(observations) == 0 {
				fmt.Fprintf(out, "%s: no audio tracks\n", path)
				return nil
			}
			printObservations(out, observations)
			return nil
		},
	}
}

func printObservations(out io.Writer, observations []media.Observation) {
	var rows [][]string
	for _, obs := range observations {
		for _, track := range media.ExpandTracks(obs) {
			size := track.Size
			member := "-"
			encrypted := "-"
			if track.IsArchiveMember() {
				size = track.ArchiveSize
				member = track.ArchivePath
				encrypted = yesNo(track.Encrypted)
			}
			rows = append(rows, []string{
				track.Key,
				track.MIME,
				member,
				orDash(track.AudioTrack.Codec),
				channels(track.AudioTrack.Channels),
				formatSize(size),
				formatDuration(track),
				encrypted,
			})
		}
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Track", "MIME", "Member", "Codec", "Channels", "Size", "Duration", "Encrypted"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

func channels(count int) string {
	if count <= 0 {
		return "-"
	}
	return strconv.Itoa(count)
}
