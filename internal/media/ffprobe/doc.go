// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties, including the container track id
//     and timing fields used to derive sample counts
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect executes ffprobe and returns a parsed Result; Parse decodes an
// already captured payload.
package ffprobe
