// Package queue is the session store: the registry of discovered tracks, the
// task attached to each of them, and the process-wide task defaults.
//
// The store is backed by SQLite and scoped to one session. The daemon clears
// it when a session starts and again when it ends, so nothing here is meant to
// survive a restart. Tracks are insert-if-absent and immutable; tasks are
// created lazily with an empty override set the first time a track is
// referenced and are never deleted while the session runs.
//
// Status is modelled in two layers. The stored Status records what the
// pipeline last did, and EffectiveStatus derives what a caller should see:
// a waiting task whose resolved model set is empty reports StatusSkipped
// without the stored value ever changing.
//
// Every status change goes through SetStatus, which validates it against the
// transition table in models.go.
package queue
