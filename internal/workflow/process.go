package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"wspsr/internal/config"
	"wspsr/internal/fileutil"
	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/procexec"
	"wspsr/internal/queue"
	"wspsr/internal/services"
	"wspsr/internal/services/bsdtar"
	"wspsr/internal/services/ffmpeg"
	"wspsr/internal/services/whisperx"
)

const (
	stageUnpack     = "unpack"
	stageLoad       = "load"
	stageTranscribe = "transcribe"
	stageReturn     = "return"
)

// run carries the state of one processing attempt.
type run struct {
	key      string
	track    media.Track
	options  queue.Options
	id       string
	scratch  string
	logger   *slog.Logger
	sink     procexec.Sink
	ctx      context.Context
	finished bool
}

// ProcessTrack runs the pipeline for key if its effective status is WAITING.
// Stage failures end as a FAILED status and are not returned; the error
// reports only failures to record state.
func (m *Manager) ProcessTrack(ctx context.Context, key string) error {
	track, err := m.store.Track(ctx, key)
	if err != nil {
		return err
	}
	resolved, err := m.store.Resolve(ctx, key)
	if err != nil {
		return err
	}
	if status := queue.EffectiveStatus(resolved); status != queue.StatusWaiting {
		m.logger.Debug("task not runnable; skipped",
			logging.String(logging.FieldTrackKey, key),
			logging.String("status", string(status)),
		)
		return nil
	}

	r := &run{
		key:     key,
		track:   track,
		options: resolved.Options,
		id:      uuid.NewString(),
	}
	r.ctx = services.WithRunID(services.WithTrackKey(ctx, key), r.id)
	base := logging.WithContext(r.ctx, m.logger)

	logFile, logPath, err := m.logs.open(trackName(track), r.id)
	if err != nil {
		logging.WarnWithContext(base, "task log unavailable", "task_log_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "command output only reaches the daemon log"),
		)
		r.logger = base
		r.sink = procexec.LogSink{Logger: base}
	} else {
		defer logFile.Close()
		r.logger = logging.TeeLogger(base, logging.NewFileHandler(logFile, slog.LevelDebug))
		r.sink = procexec.MultiSink{procexec.NewWriterSink(logFile), procexec.LogSink{Logger: base}}
	}
	if err := m.store.SetRun(ctx, key, r.id, logPath); err != nil {
		return err
	}

	m.metrics.TaskStarted()
	defer m.metrics.TaskFinished()
	started := time.Now()
	r.logger.Info("processing track",
		logging.String("source", track.Path),
		logging.Bool("archive_member", track.IsArchiveMember()),
		logging.Strings("models", r.options.Models),
		logging.String("log_path", logPath),
		logging.String(logging.FieldEventType, "task_start"),
	)

	if track.IsEncrypted() {
		return m.fail(r, "archive member is encrypted")
	}

	if err := os.MkdirAll(m.cfg.Paths.ScratchDir, 0o755); err != nil {
		return m.fail(r, fmt.Sprintf("create scratch root: %v", err))
	}
	scratch, err := os.MkdirTemp(m.cfg.Paths.ScratchDir, "wspsr-*")
	if err != nil {
		return m.fail(r, fmt.Sprintf("create scratch directory: %v", err))
	}
	r.scratch = scratch
	defer m.cleanup(r)
	r.logger.Info("scratch directory ready", logging.String("scratch", scratch))

	source := track.Path
	if track.IsArchiveMember() {
		extracted, err := m.unpack(r)
		if err != nil || r.finished {
			return err
		}
		source = extracted
	}

	intermediate, err := m.load(r, source)
	if err != nil || r.finished {
		return err
	}
	if err := m.transcribe(r, intermediate); err != nil || r.finished {
		return err
	}
	if err := m.export(r, intermediate); err != nil || r.finished {
		return err
	}

	if err := m.transition(r.ctx, r.logger, key, queue.StatusCompleted, ""); err != nil {
		return err
	}
	r.logger.Info("track processed",
		logging.Duration("elapsed", time.Since(started)),
		logging.String("output", track.OutputDir(m.cfg.Workflow.OutputSuffix)),
		logging.String(logging.FieldEventType, "task_complete"),
	)
	return nil
}

func (m *Manager) unpack(r *run) (string, error) {
	member := r.track.ArchivePath
	if !filepath.IsLocal(filepath.FromSlash(member)) {
		return "", m.fail(r, fmt.Sprintf("unsafe archive member path %q", member))
	}
	if err := m.transition(r.ctx, r.logger, r.key, queue.StatusUnpacking, ""); err != nil {
		return "", err
	}
	cmd := bsdtar.NewCommand(m.cfg.Tools.Bsdtar, r.track.Path, member, r.scratch)
	if ok, err := m.runStage(r, stageUnpack, cmd); !ok {
		return "", err
	}
	return filepath.Join(r.scratch, filepath.FromSlash(member)), nil
}

// load normalizes source into the scratch directory and returns the
// intermediate's file name.
func (m *Manager) load(r *run, source string) (string, error) {
	if err := m.transition(r.ctx, r.logger, r.key, queue.StatusLoading, ""); err != nil {
		return "", err
	}
	intermediate := path.Base(filepath.ToSlash(source)) + m.cfg.Transcode.Extension
	cmd := ffmpeg.NewCommand(source, intermediate, r.scratch, ffmpeg.Options{
		Binary:     m.cfg.Tools.FFmpeg,
		SampleRate: m.cfg.Transcode.SampleRate,
		Channels:   m.cfg.Transcode.Channels,
		Codec:      m.cfg.Transcode.Codec,
		Quality:    m.cfg.Transcode.Quality,
		LogLevel:   m.cfg.Transcode.LogLevel,
	})
	if ok, err := m.runStage(r, stageLoad, cmd); !ok {
		return "", err
	}
	return intermediate, nil
}

func (m *Manager) transcribe(r *run, intermediate string) error {
	if err := m.transition(r.ctx, r.logger, r.key, queue.StatusTranscribing, ""); err != nil {
		return err
	}
	tr := m.cfg.Transcription
	cmd := whisperx.NewCommand(whisperx.Config{
		Binary:      m.cfg.Tools.WhisperX,
		Language:    tr.Language,
		ComputeType: tr.ComputeType,
		AlignModel:  tr.AlignModel,
		HFToken:     tr.HFToken,
	}, whisperx.Request{
		Input:       intermediate,
		Model:       m.cfg.WhisperModel(r.options.Models),
		Diarize:     r.options.HasModel(config.DiarizeModel),
		MinSpeakers: r.options.MinSpeakers,
		MaxSpeakers: r.options.MaxSpeakers,
		Prompt:      r.options.Prompt,
	}, r.scratch)

	if m.cfg.Workflow.FailOnTranscribeError {
		_, err := m.runStage(r, stageTranscribe, cmd)
		return err
	}
	started := time.Now()
	code, err := m.runner.Run(r.ctx, cmd, r.sink)
	m.metrics.Command(cmd.Program, code)
	if r.ctx.Err() != nil {
		m.metrics.StageFinished(stageTranscribe, "interrupted", time.Since(started))
		return m.fail(r, "interrupted by shutdown")
	}
	if err != nil || code != 0 {
		m.metrics.StageFinished(stageTranscribe, "ignored", time.Since(started))
		logging.WarnWithContext(r.logger, "transcription exited with an error; continuing", "transcribe_error_ignored",
			logging.Int("exit_code", code),
			logging.Error(err),
			logging.String(logging.FieldImpact, "partial or missing transcripts are exported"),
			logging.String(logging.FieldErrorHint, "set workflow.fail_on_transcribe_error to fail such tracks"),
		)
		return nil
	}
	m.metrics.StageFinished(stageTranscribe, "ok", time.Since(started))
	return nil
}

// export copies every artifact except the intermediate next to the source.
func (m *Manager) export(r *run, intermediate string) error {
	if err := m.transition(r.ctx, r.logger, r.key, queue.StatusReturning, ""); err != nil {
		return err
	}
	started := time.Now()
	dest := r.track.OutputDir(m.cfg.Workflow.OutputSuffix)
	copied, err := fileutil.CopyTree(r.scratch, dest, func(rel string, entry fs.DirEntry) bool {
		return rel == intermediate
	})
	if err != nil {
		m.metrics.StageFinished(stageReturn, "failed", time.Since(started))
		return m.fail(r, fmt.Sprintf("export to %s: %v", dest, err))
	}
	m.metrics.StageFinished(stageReturn, "ok", time.Since(started))
	r.logger.Info("artifacts exported",
		logging.String("output", dest),
		logging.Int("files", copied),
	)
	return nil
}

// runStage runs cmd and reports whether the pipeline may continue. A
// non-zero exit, a start failure, or an interruption fails the task.
func (m *Manager) runStage(r *run, stage string, cmd procexec.Command) (bool, error) {
	stageLogger := r.logger.With(logging.String(logging.FieldStage, stage))
	started := time.Now()
	code, runErr := m.runner.Run(services.WithStage(r.ctx, stage), cmd, r.sink)
	m.metrics.Command(cmd.Program, code)
	elapsed := time.Since(started)

	switch {
	case r.ctx.Err() != nil:
		m.metrics.StageFinished(stage, "interrupted", elapsed)
		return false, m.fail(r, fmt.Sprintf("%s interrupted by shutdown", stage))
	case runErr != nil:
		m.metrics.StageFinished(stage, "failed", elapsed)
		stageLogger.Error("command could not run",
			logging.String("command", cmd.Program),
			logging.Error(runErr),
			logging.String(logging.FieldEventType, "command_failed"),
			logging.String(logging.FieldErrorHint, "run wspsr deps to check external tools"),
		)
		return false, m.fail(r, fmt.Sprintf("%s: %v", stage, runErr))
	case code != 0:
		m.metrics.StageFinished(stage, "failed", elapsed)
		stageLogger.Warn("command exited with error",
			logging.String("command", cmd.Program),
			logging.Int("exit_code", code),
			logging.String(logging.FieldEventType, "command_exit_nonzero"),
		)
		return false, m.fail(r, fmt.Sprintf("%s exited with code %d", filepath.Base(cmd.Program), code))
	}
	m.metrics.StageFinished(stage, "ok", elapsed)
	stageLogger.Debug("stage finished", logging.Duration("elapsed", elapsed))
	return true, nil
}

// fail moves the task to FAILED and ends the run.
func (m *Manager) fail(r *run, message string) error {
	r.finished = true
	return m.transition(r.ctx, r.logger, r.key, queue.StatusFailed, message)
}

func (m *Manager) cleanup(r *run) {
	if r.scratch == "" {
		return
	}
	if err := os.RemoveAll(r.scratch); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(r.logger, "scratch cleanup failed", "scratch_cleanup_failed",
			logging.String("scratch", r.scratch),
			logging.Error(err),
			logging.String(logging.FieldImpact, "scratch space is not reclaimed until manual cleanup"),
		)
	}
}

func trackName(track media.Track) string {
	if track.IsArchiveMember() {
		return path.Base(track.ArchivePath)
	}
	return filepath.Base(track.Path)
}
