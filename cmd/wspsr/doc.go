// Command wspsr watches a directory for audio, video, and archives holding
// them, and transcribes every discovered audio track with whisperx.
//
// `wspsr run` starts a session in the foreground and prints a per-track
// report when it ends. `wspsr inspect` shows what discovery sees for one
// path, `wspsr deps` checks the external tools, and `wspsr config` manages
// the configuration file.
package main
