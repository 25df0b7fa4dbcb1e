// Package config loads, normalizes, and validates wspsr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WSPSR_WATCH_DIR and HF_TOKEN. The Config type centralizes every knob the
// session and CLI need: the watched directory, external tool names, the
// normalized audio format, the whisperx model catalog, and the task defaults
// applied to newly discovered tracks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
