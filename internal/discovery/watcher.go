package discovery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"wspsr/internal/logging"
	"wspsr/internal/metrics"
	"wspsr/internal/services"
)

// Trigger wakes the watcher when the watched directory may have changed.
// Start must not block; Stop returns once the trigger released its
// resources.
type Trigger interface {
	Name() string
	Start(ctx context.Context, wake func()) error
	Stop()
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	Dir          string
	Recursive    bool
	PollInterval time.Duration
	// RescanRate and RescanBurst bound how often snapshots are taken no
	// matter how many triggers fire.
	RescanRate  float64
	RescanBurst int
	Triggers    []Trigger
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Watcher diffs snapshots of one directory and sends newly created paths to
// the inspection worker.
type Watcher struct {
	dir       string
	recursive bool
	interval  time.Duration
	limiter   *rate.Limiter
	triggers  []Trigger
	logger    *slog.Logger
	metrics   *metrics.Metrics
	wake      chan struct{}
}

var errWatcherStopped = errors.New("watcher stopped")

// NewWatcher builds a watcher; Run starts it.
func NewWatcher(opts WatcherOptions) *Watcher {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	limit := rate.Limit(opts.RescanRate)
	if opts.RescanRate <= 0 {
		limit = rate.Inf
	}
	burst := opts.RescanBurst
	if burst <= 0 {
		burst = 1
	}
	return &Watcher{
		dir:       opts.Dir,
		recursive: opts.Recursive,
		interval:  interval,
		limiter:   rate.NewLimiter(limit, burst),
		triggers:  opts.Triggers,
		logger:    logging.NewComponentLogger(opts.Logger, "watcher"),
		metrics:   opts.Metrics,
		wake:      make(chan struct{}, 1),
	}
}

// notify requests a rescan. Requests arriving while one is pending collapse
// into it.
func (w *Watcher) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run scans immediately against an empty prior snapshot, so every file
// already present is reported, then rescans on each tick or trigger until
// stop is closed or ctx ends. It returns an error only when the watched
// directory can no longer be read.
func (w *Watcher) Run(ctx context.Context, stop <-chan struct{}, paths chan<- string) error {
	for _, trigger := range w.triggers {
		if err := trigger.Start(ctx, w.notify); err != nil {
			logging.WarnWithContext(w.logger, "change trigger unavailable; relying on polling", "trigger_unavailable",
				logging.String("trigger", trigger.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "new files are picked up on the next poll tick"),
			)
			continue
		}
		defer trigger.Stop()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watching directory",
		logging.String("dir", w.dir),
		logging.Bool("recursive", w.recursive),
		logging.Duration("poll_interval", w.interval),
		logging.String(logging.FieldEventType, "watcher_started"),
	)

	previous := snapshot{}
	for {
		next, err := w.rescan(ctx, stop, previous, paths)
		if errors.Is(err, errWatcherStopped) {
			return nil
		}
		if err != nil {
			return err
		}
		previous = next

		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-w.wake:
		}

		reservation := w.limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-stop:
				timer.Stop()
				reservation.Cancel()
				return nil
			case <-ctx.Done():
				timer.Stop()
				reservation.Cancel()
				return nil
			case <-timer.C:
			}
		}
	}
}

func (w *Watcher) rescan(ctx context.Context, stop <-chan struct{}, previous snapshot, paths chan<- string) (snapshot, error) {
	current, err := takeSnapshot(w.dir, w.recursive)
	if err != nil {
		return nil, services.Wrap(services.ErrProcessLifecycle, "discovery", "snapshot", "watched directory unreadable", err)
	}
	w.metrics.Rescan()

	created := current.created(previous)
	for _, path := range created {
		select {
		case paths <- path:
		case <-stop:
			return nil, errWatcherStopped
		case <-ctx.Done():
			return nil, errWatcherStopped
		}
	}
	if len(created) > 0 {
		w.logger.Debug("new paths queued for inspection",
			logging.Int("count", len(created)),
		)
	}
	return current, nil
}
