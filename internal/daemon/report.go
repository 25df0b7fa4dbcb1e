package daemon

import (
	"context"

	"wspsr/internal/media"
	"wspsr/internal/queue"
)

// Row is one track of a session report.
type Row struct {
	Track   media.Track
	Status  queue.Status
	Message string
}

// Report is the final state of every track registered in a session.
type Report struct {
	Rows []Row
}

// Summary counts rows by status.
func (r Report) Summary() queue.Summary {
	summary := queue.Summary{}
	for _, row := range r.Rows {
		summary[row.Status]++
	}
	return summary
}

func (d *Daemon) report(ctx context.Context) (Report, error) {
	tracks, err := d.store.Tracks(ctx)
	if err != nil {
		return Report{}, err
	}
	defaults, err := d.store.Defaults(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{Rows: make([]Row, 0, len(tracks))}
	for _, track := range tracks {
		task, err := d.store.Task(ctx, track.Key)
		if err != nil {
			return report, err
		}
		report.Rows = append(report.Rows, Row{
			Track:   track,
			Status:  queue.EffectiveStatus(task.Resolve(defaults)),
			Message: task.ErrorMessage,
		})
	}
	return report, nil
}
