package services

import "context"

type contextKey string

const (
	trackKeyKey contextKey = "track_key"
	stageKey    contextKey = "stage"
	runIDKey    contextKey = "run_id"
)

// WithTrackKey annotates context with the track registry key.
func WithTrackKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, trackKeyKey, key)
}

// TrackKeyFromContext extracts the track registry key if present.
func TrackKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(trackKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of one processing attempt.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
