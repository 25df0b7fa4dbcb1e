package daemon

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"wspsr/internal/config"
	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/metrics"
	"wspsr/internal/queue"
	"wspsr/internal/services"
	"wspsr/internal/workflow"
)

// Source produces discovery observations until ctx ends or it fails. Err
// reports why the sequence ended on its own.
type Source interface {
	Observations(ctx context.Context) iter.Seq[media.Observation]
	Err() error
}

// Daemon binds discovery, the session store, and the workflow manager.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	workflow  *workflow.Manager
	source    Source
	metrics   *metrics.Metrics
	autoStart bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Option configures optional daemon behaviour.
type Option func(*Daemon)

// WithMetrics counts registered tracks and serves /metrics when
// metrics.bind is set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) {
		d.metrics = m
	}
}

// WithAutoStart overrides workflow.auto_start.
func WithAutoStart(enabled bool) Option {
	return func(d *Daemon) {
		d.autoStart = enabled
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, source Source, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil || source == nil {
		return nil, errors.New("daemon requires config, store, workflow manager, and discovery source")
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		workflow:  wf,
		source:    source,
		autoStart: cfg.Workflow.AutoStart,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run holds the session lock and runs discovery, the workflow sequencer, and
// the metrics endpoint until ctx ends or discovery fails. The returned report
// lists every track of the session with its final status.
func (d *Daemon) Run(ctx context.Context) (Report, error) {
	if !d.running.CompareAndSwap(false, true) {
		return Report{}, services.Wrap(services.ErrProcessLifecycle, "daemon", "run", "session already running", nil)
	}
	defer d.running.Store(false)

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return Report{}, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return Report{}, services.Wrap(services.ErrProcessLifecycle, "daemon", "lock",
			fmt.Sprintf("another wspsr session holds %s", d.lockPath), nil)
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release session lock", logging.Error(err))
		}
	}()

	if err := d.store.Clear(ctx); err != nil {
		return Report{}, fmt.Errorf("clear session store: %w", err)
	}
	if err := d.store.SetDefaults(ctx, workflow.DefaultOptions(d.cfg)); err != nil {
		return Report{}, fmt.Errorf("set session defaults: %w", err)
	}

	d.logger.Info("wspsr session started",
		logging.String("lock", d.lockPath),
		logging.String("store", d.store.Path()),
		logging.Bool("auto_start", d.autoStart),
		logging.String(logging.FieldEventType, "session_started"),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return d.workflow.Run(groupCtx)
	})
	group.Go(func() error {
		return d.discover(groupCtx)
	})
	if bind := d.cfg.Metrics.Bind; bind != "" && d.metrics != nil {
		group.Go(func() error {
			return serveMetrics(groupCtx, bind, d.metrics, d.logger)
		})
	}
	runErr := group.Wait()

	cleanupCtx := context.WithoutCancel(ctx)
	report, reportErr := d.report(cleanupCtx)
	if reportErr != nil {
		d.logger.Warn("session report unavailable", logging.Error(reportErr))
	}
	if err := d.store.Clear(cleanupCtx); err != nil {
		d.logger.Warn("failed to clear session store", logging.Error(err))
	}

	attrs := []logging.Attr{
		logging.Int("tracks", len(report.Rows)),
		logging.String(logging.FieldEventType, "session_stopped"),
	}
	for status, count := range report.Summary() {
		attrs = append(attrs, logging.Int(string(status), count))
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		d.logger.Error("wspsr session ended", logging.Args(attrs...)...)
	} else {
		d.logger.Info("wspsr session ended", logging.Args(attrs...)...)
	}
	return report, runErr
}

// Running reports whether a session is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath is the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// discover registers every observed track until the discovery sequence ends.
// Only a failed discovery source ends the session with an error.
func (d *Daemon) discover(ctx context.Context) error {
	for obs := range d.source.Observations(ctx) {
		d.register(ctx, obs)
	}
	if err := d.source.Err(); err != nil {
		return fmt.Errorf("discovery stopped: %w", err)
	}
	if ctx.Err() == nil {
		return services.Wrap(services.ErrProcessLifecycle, "daemon", "discover", "discovery ended unexpectedly", nil)
	}
	return nil
}

func (d *Daemon) register(ctx context.Context, obs media.Observation) {
	for _, track := range media.ExpandTracks(obs) {
		added, err := d.store.AddTrack(ctx, track)
		if err != nil {
			logging.WarnWithContext(d.logger, "failed to register track", "track_register_failed",
				logging.String(logging.FieldTrackKey, track.Key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "track will not be processed this session"),
			)
			continue
		}
		if !added {
			continue
		}
		d.metrics.TrackRegistered()

		resolved, err := d.store.Resolve(ctx, track.Key)
		if err != nil {
			d.logger.Warn("failed to resolve new task", logging.String(logging.FieldTrackKey, track.Key), logging.Error(err))
			continue
		}
		status := queue.EffectiveStatus(resolved)
		attrs := []logging.Attr{
			logging.String(logging.FieldTrackKey, track.Key),
			logging.String("mime", track.MIME),
			logging.String("format", track.Format),
			logging.Bool("archive_member", track.IsArchiveMember()),
			logging.Bool("encrypted", track.IsEncrypted()),
			logging.String("status", string(status)),
			logging.String(logging.FieldEventType, "track_discovered"),
		}
		if duration, ok := track.Duration(); ok {
			attrs = append(attrs, logging.Duration("duration", duration))
		}
		d.logger.Info("track discovered", logging.Args(attrs...)...)

		if d.autoStart && status == queue.StatusWaiting {
			if err := d.workflow.Start(ctx, track.Key); err != nil {
				d.logger.Warn("auto-start failed", logging.String(logging.FieldTrackKey, track.Key), logging.Error(err))
			}
		}
	}
}
