// Package services defines shared plumbing for the discovery and task
// pipelines and the external tool adapters beneath it.
//
// Key responsibilities:
//   - Context helpers that stamp track keys, stage names, and run identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is regardless of how deep they were wrapped.
//
// The subpackages build argument vectors for bsdtar, ffmpeg, and whisperx.
package services
