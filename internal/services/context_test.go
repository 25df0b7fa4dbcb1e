package services_test

import (
	"context"
	"testing"

	"wspsr/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTrackKey(ctx, "/media/a.mp3/0")
	ctx = services.WithStage(ctx, "transcribing")
	ctx = services.WithRunID(ctx, "run-123")

	if key, ok := services.TrackKeyFromContext(ctx); !ok || key != "/media/a.mp3/0" {
		t.Fatalf("unexpected track key: %v %v", key, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithTrackKey(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.TrackKeyFromContext(ctx); ok {
		t.Fatal("expected no track key value")
	}
}
