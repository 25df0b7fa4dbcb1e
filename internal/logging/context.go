package logging

import (
	"context"
	"log/slog"

	"wspsr/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the line.
	FieldComponent = "component"
	// FieldTrackKey carries the track registry key a line concerns.
	FieldTrackKey = "track_key"
	// FieldStage carries the pipeline stage name.
	FieldStage = "stage"
	// FieldRunID identifies one processing attempt of a track.
	FieldRunID = "run_id"
	// FieldSessionID identifies one wspsr session.
	FieldSessionID = "session_id"
	// FieldEventType is a stable machine-readable label for the event.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if key, ok := services.TrackKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTrackKey, key))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
