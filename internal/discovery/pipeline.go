package discovery

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"wspsr/internal/config"
	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/metrics"
	"wspsr/internal/services"
)

// Options configures a Pipeline.
type Options struct {
	Watcher WatcherOptions
	// Inspector defaults to DefaultInspector with ffprobe from PATH.
	Inspector *Inspector
	// QueueSize bounds both the path and the observation channels.
	QueueSize int
	// ReceiveTimeout bounds how long Observations blocks before checking
	// that the watcher and worker are still alive.
	ReceiveTimeout time.Duration
	// WorkerGrace is how long Stop waits for the worker to finish its
	// current path before cancelling it.
	WorkerGrace time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Pipeline owns the watcher and inspection worker of one discovery session.
type Pipeline struct {
	watcher        *Watcher
	inspector      *Inspector
	logger         *slog.Logger
	metrics        *metrics.Metrics
	receiveTimeout time.Duration
	grace          time.Duration

	paths        chan string
	observations chan media.Observation
	stopWatcher  chan struct{}
	cancelWorker context.CancelFunc
	watcherDone  chan struct{}
	workerDone   chan struct{}

	mu       sync.Mutex
	started  bool
	stopped  bool
	err      error
	stopOnce sync.Once
}

// New builds a pipeline; nothing runs until Start or Observations.
func New(opts Options) *Pipeline {
	logger := logging.NewComponentLogger(opts.Logger, "discovery")
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	receiveTimeout := opts.ReceiveTimeout
	if receiveTimeout <= 0 {
		receiveTimeout = time.Second
	}
	inspector := opts.Inspector
	if inspector == nil {
		inspector = DefaultInspector("ffprobe", opts.Logger)
	}
	watcherOpts := opts.Watcher
	if watcherOpts.Logger == nil {
		watcherOpts.Logger = opts.Logger
	}
	if watcherOpts.Metrics == nil {
		watcherOpts.Metrics = opts.Metrics
	}
	return &Pipeline{
		watcher:        NewWatcher(watcherOpts),
		inspector:      inspector,
		logger:         logger,
		metrics:        opts.Metrics,
		receiveTimeout: receiveTimeout,
		grace:          opts.WorkerGrace,
		paths:          make(chan string, queueSize),
		observations:   make(chan media.Observation, queueSize),
		stopWatcher:    make(chan struct{}),
		watcherDone:    make(chan struct{}),
		workerDone:     make(chan struct{}),
	}
}

// NewFromConfig builds a pipeline watching dir with the configured tools,
// triggers, and timings.
func NewFromConfig(cfg *config.Config, dir string, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	var triggers []Trigger
	if cfg.Discovery.Inotify {
		triggers = append(triggers, NewInotifyTrigger(dir, logger))
	}
	if cfg.Discovery.Udev {
		triggers = append(triggers, NewUdevTrigger(logger, cfg.UdevSettle()))
	}
	return New(Options{
		Watcher: WatcherOptions{
			Dir:          dir,
			Recursive:    cfg.Discovery.Recursive,
			PollInterval: cfg.PollInterval(),
			RescanRate:   cfg.Discovery.RescanRate,
			RescanBurst:  cfg.Discovery.RescanBurst,
			Triggers:     triggers,
		},
		Inspector:      DefaultInspector(cfg.Tools.FFprobe, logger),
		QueueSize:      cfg.Discovery.QueueSize,
		ReceiveTimeout: cfg.ReceiveTimeout(),
		WorkerGrace:    cfg.WorkerGrace(),
		Logger:         logger,
		Metrics:        m,
	})
}

// Start launches the watcher and worker. A pipeline starts at most once.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return services.Wrap(services.ErrProcessLifecycle, "discovery", "start", "pipeline is not restartable", nil)
	}
	p.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancelWorker = cancel
	w := &worker{
		inspector: p.inspector,
		in:        p.paths,
		out:       p.observations,
		logger:    logging.NewComponentLogger(p.logger, "inspection-worker"),
		metrics:   p.metrics,
	}
	go func() {
		defer close(p.workerDone)
		if err := w.run(workerCtx); err != nil {
			p.setErr(err)
		}
	}()
	go func() {
		defer close(p.watcherDone)
		if err := p.watcher.Run(ctx, p.stopWatcher, p.paths); err != nil {
			p.setErr(err)
		}
	}()
	return nil
}

// Observations returns the discovery sequence, starting the pipeline if
// needed. The sequence ends when ctx is cancelled, the consumer stops
// iterating, or the watcher or worker exits; in every case the pipeline is
// stopped before the sequence returns.
func (p *Pipeline) Observations(ctx context.Context) iter.Seq[media.Observation] {
	return func(yield func(media.Observation) bool) {
		if err := p.Start(ctx); err != nil && !p.Running() {
			p.setErr(err)
			return
		}
		defer p.Stop()

		ticker := time.NewTicker(p.receiveTimeout)
		defer ticker.Stop()
		for {
			select {
			case obs := <-p.observations:
				if !yield(obs) {
					return
				}
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !p.alive() {
					return
				}
			}
		}
	}
}

func (p *Pipeline) alive() bool {
	select {
	case <-p.watcherDone:
		return false
	case <-p.workerDone:
		return false
	default:
		return true
	}
}

// Stop tears the pipeline down: the stop sentinel is queued behind any
// pending paths, the watcher is stopped, the worker gets the grace period to
// drain up to the sentinel and is then cancelled, and both are joined. Stop
// is idempotent and returns only after both goroutines have exited.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.stopped = true
		p.mu.Unlock()
		if !started {
			return
		}

		grace := time.NewTimer(p.grace)
		defer grace.Stop()
		expired := false
		select {
		case p.paths <- stopSentinel:
		case <-p.workerDone:
		case <-grace.C:
			expired = true
		}
		close(p.stopWatcher)

		if !expired {
			select {
			case <-p.workerDone:
			case <-grace.C:
				expired = true
			}
		}
		if expired {
			p.logger.Warn("inspection worker did not stop within grace period; cancelling",
				logging.Duration("grace", p.grace),
				logging.String(logging.FieldEventType, "worker_force_stop"),
			)
		}
		p.cancelWorker()
		<-p.workerDone
		<-p.watcherDone

		p.logger.Info("discovery stopped",
			logging.String(logging.FieldEventType, "discovery_stopped"),
		)
	})
}

// Err reports why the pipeline ended on its own, if it did.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pipeline) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Running reports whether the pipeline has started and not yet been stopped.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.stopped
}
