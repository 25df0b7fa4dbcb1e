// Package preflight provides readiness checks for the directories and
// external tools wspsr depends on.
//
// These checks run in two contexts:
//   - The daemon runs them at session start and logs every failure; a
//     missing required tool or unusable state directory aborts the session.
//   - The CLI "wspsr deps" command prints them as a table.
package preflight
