// Package logging assembles structured slog loggers for wspsr.
//
// It owns the console and JSON handlers, level and output plumbing, the
// standardized field keys, and context-aware helpers that tag lines with the
// track key, stage, and run identifier carried on a context. A no-op logger is
// provided for tests and for wiring code that cannot fail.
package logging
