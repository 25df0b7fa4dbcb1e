package preflight

import (
	"wspsr/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the directories a session touches: the watched directory
// must be listable, the state, scratch, and log directories writable.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryReadable("Watched directory", cfg.Paths.WatchDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
