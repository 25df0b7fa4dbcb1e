// Package workflow drives discovered tracks through the transcription
// pipeline.
//
// A Manager owns one sequencer goroutine (Run) that takes track keys from a
// pending list in the order they were started and processes them one at a
// time: unpack archive members with bsdtar, normalize audio with ffmpeg,
// transcribe with whisperx, and copy the artifacts next to the source. Every
// status change is validated against the queue transition table, persisted,
// logged, counted, and published to the configured StatusSink. Command
// output streams to the daemon log and to a per-task log file.
//
// Cancel drops the pending list; the track in progress finishes its stages.
package workflow
