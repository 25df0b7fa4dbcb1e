package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"wspsr/internal/config"
	"wspsr/internal/daemon"
	"wspsr/internal/deps"
	"wspsr/internal/discovery"
	"wspsr/internal/logging"
	"wspsr/internal/metrics"
	"wspsr/internal/preflight"
	"wspsr/internal/queue"
	"wspsr/internal/services"
	"wspsr/internal/workflow"
)

// Options configures one session run.
type Options struct {
	// WatchDir overrides paths.watch_dir when set.
	WatchDir string
	// AutoStart overrides workflow.auto_start when non-nil.
	AutoStart *bool
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Run starts a wspsr session and blocks until SIGINT/SIGTERM, cancellation of
// cmdCtx, or a discovery failure. It returns the final per-track report.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (daemon.Report, error) {
	if cfg == nil {
		return daemon.Report{}, fmt.Errorf("config is required")
	}
	if dir := strings.TrimSpace(opts.WatchDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return daemon.Report{}, fmt.Errorf("resolve watch dir: %w", err)
		}
		cfg.Paths.WatchDir = expanded
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return daemon.Report{}, err
	}
	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return daemon.Report{}, fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger := baseLogger.With(logging.String(logging.FieldSessionID, sessionID))

	if removed := logging.CleanupOldLogs(logger, cfg.TaskLogDir(), "*.log", cfg.Logging.RetentionDays); removed > 0 {
		logger.Info("pruned task logs", logging.Int("removed", removed))
	}

	if err := checkEnvironment(logger, cfg); err != nil {
		return daemon.Report{}, err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		return daemon.Report{}, err
	}
	defer store.Close()

	m := metrics.New()
	wf := workflow.NewManager(cfg, store, logger, workflow.WithMetrics(m))
	source := discovery.NewFromConfig(cfg, cfg.Paths.WatchDir, logger, m)

	daemonOpts := []daemon.Option{daemon.WithMetrics(m)}
	if opts.AutoStart != nil {
		daemonOpts = append(daemonOpts, daemon.WithAutoStart(*opts.AutoStart))
	}
	d, err := daemon.New(cfg, store, logger, wf, source, daemonOpts...)
	if err != nil {
		return daemon.Report{}, fmt.Errorf("create daemon: %w", err)
	}

	logger.Info("watching directory",
		logging.String("watch_dir", cfg.Paths.WatchDir),
		logging.Bool("recursive", cfg.Discovery.Recursive),
		logging.Strings("default_models", cfg.Transcription.DefaultModels),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	report, err := d.Run(signalCtx)
	logger.Info("wspsr session shutting down")
	return report, err
}

// checkEnvironment runs directory and binary checks. A missing required
// binary or an unusable directory aborts the session.
func checkEnvironment(logger *slog.Logger, cfg *config.Config) error {
	for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix directory permissions or paths in the config file"),
		)
		return services.Wrap(services.ErrConfiguration, "preflight", result.Name, result.Detail, nil)
	}

	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		logger.Debug("dependency check",
			logging.String("tool", status.Name),
			logging.String("command", status.Command),
			logging.String("path", status.Path),
			logging.Bool("available", status.Available),
		)
	}
	missing := deps.MissingRequired(statuses)
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, status := range missing {
		names = append(names, status.Command)
		logging.ErrorWithContext(logger, "required tool missing", "dependency_missing",
			logging.String("tool", status.Name),
			logging.String("command", status.Command),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install the tool or set its path in the [tools] section"),
		)
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "dependencies",
		"missing required tools: "+strings.Join(names, ", "), nil)
}
