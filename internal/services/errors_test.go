package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"wspsr/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "unpacking", "bsdtar", "exit status 1", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"unpacking", "bsdtar", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "", "", "", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestMarkerSurvivesOuterWrapping(t *testing.T) {
	inner := services.Wrap(services.ErrArchiveIntegrity, "archive", "scan", "truncated", nil)
	outer := fmt.Errorf("inspect /media/b.zip: %w", inner)
	if got := services.Marker(outer); got != services.ErrArchiveIntegrity {
		t.Fatalf("Marker = %v, want ErrArchiveIntegrity", got)
	}
	if got := services.Marker(errors.New("plain")); got != nil {
		t.Fatalf("Marker(plain) = %v, want nil", got)
	}
}
