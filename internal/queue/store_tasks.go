package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const taskColumns = "key, models_json, min_speakers, max_speakers, prompt, status, error_message, run_id, log_path, created_at, updated_at"

// Task returns the task for key, creating it with an empty override set when
// the track is referenced for the first time.
func (s *Store) Task(ctx context.Context, key string) (Task, error) {
	if err := s.ensureTask(ctx, key); err != nil {
		return Task{}, err
	}
	return s.getTask(ctx, key)
}

func (s *Store) ensureTask(ctx context.Context, key string) error {
	exists, err := s.trackExists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return unknownTrack(key)
	}
	now := s.timestamp()
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT OR IGNORE INTO tasks (key, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		key, StatusWaiting, now, now,
	); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *Store) getTask(ctx context.Context, key string) (Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE key = ?`, key)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, unknownTrack(key)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Resolve returns the task for key merged over the session defaults. Calling
// it again without an intervening option change yields an identical result.
func (s *Store) Resolve(ctx context.Context, key string) (Resolved, error) {
	defaults, err := s.Defaults(ctx)
	if err != nil {
		return Resolved{}, err
	}
	task, err := s.Task(ctx, key)
	if err != nil {
		return Resolved{}, err
	}
	return task.Resolve(defaults), nil
}

// SetDefaults replaces the session-wide options applied to every task
// lacking its own override.
func (s *Store) SetDefaults(ctx context.Context, opts Options) error {
	modelsJSON, err := encodeModels(opts.Models)
	if err != nil {
		return err
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO defaults (id, models_json, min_speakers, max_speakers, prompt, updated_at)
         VALUES (1, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             models_json = excluded.models_json,
             min_speakers = excluded.min_speakers,
             max_speakers = excluded.max_speakers,
             prompt = excluded.prompt,
             updated_at = excluded.updated_at`,
		modelsJSON,
		nullableIntPtr(opts.MinSpeakers),
		nullableIntPtr(opts.MaxSpeakers),
		nullableStringPtr(opts.Prompt),
		s.timestamp(),
	); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	return nil
}

// Defaults returns the session-wide options. Before SetDefaults has been
// called every field is unset.
func (s *Store) Defaults(ctx context.Context) (Options, error) {
	var (
		modelsJSON  sql.NullString
		minSpeakers sql.NullInt64
		maxSpeakers sql.NullInt64
		prompt      sql.NullString
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT models_json, min_speakers, max_speakers, prompt FROM defaults WHERE id = 1`,
	).Scan(&modelsJSON, &minSpeakers, &maxSpeakers, &prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return Options{}, nil
	}
	if err != nil {
		return Options{}, fmt.Errorf("get defaults: %w", err)
	}
	models, err := decodeModels(modelsJSON)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Models:      models,
		MinSpeakers: intPtrFromNull(minSpeakers),
		MaxSpeakers: intPtrFromNull(maxSpeakers),
		Prompt:      stringPtrFromNull(prompt),
	}, nil
}

// SetOptions replaces the override set of key and re-arms the task to
// WAITING. An empty key sets the session defaults instead. Tasks with a stage
// in flight reject the change with ErrTaskBusy.
func (s *Store) SetOptions(ctx context.Context, key string, opts Options) error {
	if key == "" {
		return s.SetDefaults(ctx, opts)
	}
	if err := s.ensureTask(ctx, key); err != nil {
		return err
	}
	modelsJSON, err := encodeModels(opts.Models)
	if err != nil {
		return err
	}
	args := []any{
		modelsJSON,
		nullableIntPtr(opts.MinSpeakers),
		nullableIntPtr(opts.MaxSpeakers),
		nullableStringPtr(opts.Prompt),
		StatusWaiting,
		s.timestamp(),
		key,
	}
	busy := make([]string, 0, len(processingStatuses))
	for _, status := range allStatuses {
		if status.IsProcessing() {
			busy = append(busy, "?")
			args = append(args, status)
		}
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET models_json = ?, min_speakers = ?, max_speakers = ?, prompt = ?,
             status = ?, error_message = NULL, updated_at = ?
         WHERE key = ? AND status NOT IN (`+strings.Join(busy, ",")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set options: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", key, ErrTaskBusy)
	}
	return nil
}

// SetStatus moves the task for key to status, recording message as the
// task's error text (empty clears it). The change must be allowed by the
// transition table.
func (s *Store) SetStatus(ctx context.Context, key string, status Status, message string) (Task, error) {
	task, err := s.Task(ctx, key)
	if err != nil {
		return Task{}, err
	}
	if !CanTransition(task.Status, status) {
		return task, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, status)
	}
	now := s.now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks SET status = ?, error_message = ?, updated_at = ? WHERE key = ? AND status = ?`,
		status,
		nullableString(message),
		now.Format(time.RFC3339Nano),
		key,
		task.Status,
	)
	if err != nil {
		return task, fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return task, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return task, fmt.Errorf("%s: %w", key, ErrStatusConflict)
	}
	task.Status = status
	task.ErrorMessage = message
	task.UpdatedAt = now
	return task, nil
}

// SetRun records the identifiers of the pipeline run processing key.
func (s *Store) SetRun(ctx context.Context, key, runID, logPath string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks SET run_id = ?, log_path = ?, updated_at = ? WHERE key = ?`,
		nullableString(runID), nullableString(logPath), s.timestamp(), key,
	); err != nil {
		return fmt.Errorf("set run: %w", err)
	}
	return nil
}

// Waiting lists, in discovery order, the keys whose stored status is WAITING,
// including tracks whose task has not been created yet.
func (s *Store) Waiting(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.key FROM tracks t
         LEFT JOIN tasks k ON k.key = t.key
         WHERE k.status IS NULL OR k.status = ?
         ORDER BY t.id`,
		StatusWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("list waiting tasks: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Summary counts registered tracks by effective status.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	defaults, err := s.Defaults(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT t.key, k.models_json, k.status FROM tracks t
         LEFT JOIN tasks k ON k.key = t.key
         ORDER BY t.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize tasks: %w", err)
	}
	defer rows.Close()

	summary := make(Summary)
	for rows.Next() {
		var (
			key        string
			modelsJSON sql.NullString
			statusRaw  sql.NullString
		)
		if err := rows.Scan(&key, &modelsJSON, &statusRaw); err != nil {
			return nil, err
		}
		models, err := decodeModels(modelsJSON)
		if err != nil {
			return nil, err
		}
		task := Task{Key: key, Overrides: Options{Models: models}, Status: StatusWaiting}
		if statusRaw.Valid {
			task.Status = Status(statusRaw.String)
		}
		summary[EffectiveStatus(task.Resolve(defaults))]++
	}
	return summary, rows.Err()
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (Task, error) {
	var (
		key          string
		modelsJSON   sql.NullString
		minSpeakers  sql.NullInt64
		maxSpeakers  sql.NullInt64
		prompt       sql.NullString
		statusRaw    string
		errorMessage sql.NullString
		runID        sql.NullString
		logPath      sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&key,
		&modelsJSON,
		&minSpeakers,
		&maxSpeakers,
		&prompt,
		&statusRaw,
		&errorMessage,
		&runID,
		&logPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return Task{}, err
	}
	models, err := decodeModels(modelsJSON)
	if err != nil {
		return Task{}, err
	}
	status, ok := ParseStatus(statusRaw)
	if !ok {
		return Task{}, fmt.Errorf("task %s: unknown status %q", key, statusRaw)
	}
	task := Task{
		Key: key,
		Overrides: Options{
			Models:      models,
			MinSpeakers: intPtrFromNull(minSpeakers),
			MaxSpeakers: intPtrFromNull(maxSpeakers),
			Prompt:      stringPtrFromNull(prompt),
		},
		Status:       status,
		ErrorMessage: errorMessage.String,
		RunID:        runID.String,
		LogPath:      logPath.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}

func encodeModels(models []string) (any, error) {
	if models == nil {
		return nil, nil
	}
	data, err := json.Marshal(models)
	if err != nil {
		return nil, fmt.Errorf("marshal models: %w", err)
	}
	return string(data), nil
}

func decodeModels(value sql.NullString) ([]string, error) {
	if !value.Valid {
		return nil, nil
	}
	models := []string{}
	if err := json.Unmarshal([]byte(value.String), &models); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return models, nil
}
