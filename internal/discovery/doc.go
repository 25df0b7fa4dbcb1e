// Package discovery finds media-bearing files under the watched directory.
//
// Three goroutines cooperate and share nothing but channels:
//
//   - the Watcher diffs snapshots of the directory and sends every newly
//     created path to the worker;
//   - the worker runs the Inspector on each path (classify, then probe media
//     or scan archives) and sends the resulting observations on;
//   - the Pipeline owns both lifetimes and hands observations to the caller
//     as an iter.Seq.
//
// Rescans are driven by a poll ticker plus optional inotify and udev
// triggers, coalesced by a token-bucket limiter. Discovery is append-only:
// removed or modified entries are never reported.
//
// A Pipeline is single-use. Once stopped, create a new one to rescan.
package discovery
