package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEncrypted         = errors.New("encrypted content")
	ErrArchiveIntegrity  = errors.New("archive integrity error")
	ErrExternalTool      = errors.New("external tool error")
	ErrProcessLifecycle  = errors.New("process lifecycle failure")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Marker returns the sentinel an error was tagged with, or nil.
func Marker(err error) error {
	for _, marker := range []error{
		ErrNotFound, ErrUnsupportedFormat, ErrEncrypted, ErrArchiveIntegrity,
		ErrExternalTool, ErrProcessLifecycle, ErrConfiguration, ErrValidation,
	} {
		if errors.Is(err, marker) {
			return marker
		}
	}
	return nil
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
