// Package procexec runs one external command and streams its output.
//
// Stdout and stderr are read as independent streams; their lines are merged
// in arrival order and handed to a Sink on the calling goroutine, so sinks
// need no locking. Run returns once both streams are drained and the process
// has exited.
package procexec
