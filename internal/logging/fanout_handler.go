package logging

import (
	"context"
	"io"
	"log/slog"
)

type fanoutHandler []slog.Handler

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	var live fanoutHandler
	for _, h := range handlers {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	default:
		return live
	}
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	next := make(fanoutHandler, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

// TeeLogger duplicates log output from base into the provided handlers.
func TeeLogger(base *slog.Logger, handlers ...slog.Handler) *slog.Logger {
	if base == nil {
		return slog.New(newFanoutHandler(handlers...))
	}
	return slog.New(newFanoutHandler(append([]slog.Handler{base.Handler()}, handlers...)...))
}

// NewFileHandler returns a console-format handler writing every level at or
// above level to w. Used for per-task command logs.
func NewFileHandler(w io.Writer, level slog.Level) slog.Handler {
	return newConsoleHandler(w, level, false, false)
}
