package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"wspsr/internal/config"
	"wspsr/internal/logging"
	"wspsr/internal/metrics"
	"wspsr/internal/procexec"
	"wspsr/internal/queue"
	"wspsr/internal/services"
)

// Manager coordinates the transcription pipeline for one session.
type Manager struct {
	cfg     *config.Config
	store   *queue.Store
	runner  procexec.Runner
	logger  *slog.Logger
	metrics *metrics.Metrics
	sink    StatusSink
	logs    *taskLogs

	mu      sync.Mutex
	pending []string
	current string
	running bool
	wake    chan struct{}
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithRunner replaces the os/exec runner, mainly for tests.
func WithRunner(runner procexec.Runner) Option {
	return func(m *Manager) {
		if runner != nil {
			m.runner = runner
		}
	}
}

// WithMetrics records stage and command metrics.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithStatusSink publishes every status change to sink.
func WithStatusSink(sink StatusSink) Option {
	return func(m *Manager) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		store:  store,
		runner: procexec.ExecRunner{},
		logger: logging.NewComponentLogger(logger, "workflow"),
		sink:   nopSink{},
		logs:   newTaskLogs(cfg),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start queues key for processing. Only tasks whose effective status is
// WAITING can be started; a key already pending is left where it is.
func (m *Manager) Start(ctx context.Context, key string) error {
	if _, err := m.store.Track(ctx, key); err != nil {
		return err
	}
	resolved, err := m.store.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if status := queue.EffectiveStatus(resolved); status != queue.StatusWaiting {
		return services.Wrap(services.ErrValidation, "workflow", "start",
			fmt.Sprintf("task %s is %s", key, status.Label()), nil)
	}
	m.enqueue(key)
	return nil
}

// StartAll queues every waiting task in discovery order and returns how many
// were added. Skipped tasks are left alone.
func (m *Manager) StartAll(ctx context.Context) (int, error) {
	keys, err := m.store.Waiting(ctx)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, key := range keys {
		resolved, err := m.store.Resolve(ctx, key)
		if err != nil {
			return added, err
		}
		if queue.EffectiveStatus(resolved) != queue.StatusWaiting {
			continue
		}
		if m.enqueue(key) {
			added++
		}
	}
	return added, nil
}

// Cancel drops every pending key and returns how many were dropped. The
// track in progress, if any, runs to completion.
func (m *Manager) Cancel() int {
	m.mu.Lock()
	dropped := len(m.pending)
	m.pending = nil
	m.mu.Unlock()
	if dropped > 0 {
		m.logger.Info("pending tasks cancelled",
			logging.Int("dropped", dropped),
			logging.String(logging.FieldEventType, "tasks_cancelled"),
		)
	}
	return dropped
}

// Pending returns the queued keys in processing order.
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending)
}

// Current returns the key being processed, if any.
func (m *Manager) Current() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current != ""
}

// SetOptions replaces the overrides of key and re-arms it to WAITING. An
// empty key replaces the session defaults. Unknown model keys are rejected.
func (m *Manager) SetOptions(ctx context.Context, key string, opts queue.Options) error {
	for _, model := range opts.Models {
		if !m.cfg.IsKnownModel(model) {
			return services.Wrap(services.ErrValidation, "workflow", "set options",
				fmt.Sprintf("unknown model %q", model), nil)
		}
	}
	if opts.MinSpeakers != nil && opts.MaxSpeakers != nil && *opts.MinSpeakers > *opts.MaxSpeakers {
		return services.Wrap(services.ErrValidation, "workflow", "set options",
			"min speakers exceeds max speakers", nil)
	}
	if key == "" {
		return m.store.SetDefaults(ctx, opts)
	}
	if _, err := m.store.Track(ctx, key); err != nil {
		return err
	}
	if err := m.replaceOptions(ctx, key, opts); err != nil {
		return err
	}
	m.publish(StatusEvent{Key: key, Status: queue.StatusWaiting})
	return nil
}

// replaceOptions holds mu across the busy check and the store update, so
// next cannot hand key to the sequencer in between. The run that picks key
// up afterwards resolves the new options.
func (m *Manager) replaceOptions(ctx context.Context, key string, opts queue.Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == key {
		return fmt.Errorf("%s: %w", key, queue.ErrTaskBusy)
	}
	return m.store.SetOptions(ctx, key, opts)
}

// Resolve returns the session defaults merged with the overrides of key.
func (m *Manager) Resolve(ctx context.Context, key string) (queue.Resolved, error) {
	return m.store.Resolve(ctx, key)
}

func (m *Manager) enqueue(key string) bool {
	m.mu.Lock()
	if slices.Contains(m.pending, key) || m.current == key {
		m.mu.Unlock()
		return false
	}
	m.pending = append(m.pending, key)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// next pops the first pending key and marks it current.
func (m *Manager) next() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return "", false
	}
	key := m.pending[0]
	m.pending = m.pending[1:]
	m.current = key
	return key, true
}

func (m *Manager) finish() {
	m.mu.Lock()
	m.current = ""
	m.mu.Unlock()
}

// Run is the sequencer: it processes pending keys one at a time until ctx is
// cancelled. Only one Run may be active per Manager.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		key, ok := m.next()
		if !ok {
			select {
			case <-ctx.Done():
				return nil
			case <-m.wake:
			}
			continue
		}
		err := m.ProcessTrack(ctx, key)
		m.finish()
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			logging.ErrorWithContext(m.logger, "task processing aborted", "task_aborted",
				logging.String(logging.FieldTrackKey, key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the session database and scratch directory"),
			)
		}
	}
}
