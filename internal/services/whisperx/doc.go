// Package whisperx builds whisperx command lines.
//
// The transcription and diarization themselves are opaque: wspsr only
// assembles the argument vector, runs it in the task's scratch directory, and
// judges the result by exit code. whisperx writes its transcripts next to
// the input.
package whisperx
