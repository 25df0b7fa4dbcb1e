// Package daemon runs one wspsr session.
//
// A session holds an exclusive lock on the state directory, starts from an
// empty session store, and registers every track discovery reports. With
// auto-start on, new waiting tracks go straight to the workflow sequencer.
// When the session ends the daemon snapshots each track's final status into
// a Report and empties the store again.
package daemon
