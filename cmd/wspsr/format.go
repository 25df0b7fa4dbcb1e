package main

import (
	"time"

	"github.com/dustin/go-humanize"

	"wspsr/internal/media"
)

func formatSize(size int64) string {
	if size <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatDuration(track media.Track) string {
	duration, ok := track.Duration()
	if !ok {
		return "-"
	}
	return duration.Round(time.Second).String()
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
