package queue

import "errors"

var (
	// ErrUnknownTrack is returned for keys that were never registered.
	ErrUnknownTrack = errors.New("unknown track")
	// ErrTaskBusy rejects option changes while a stage runs for the task.
	ErrTaskBusy = errors.New("task is being processed")
	// ErrInvalidTransition rejects status changes the transition table does
	// not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusConflict means the stored status changed between read and
	// write.
	ErrStatusConflict = errors.New("task status changed concurrently")
)
