package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"wspsr/internal/config"
	"wspsr/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSystemDeps evaluates the external tools for the given config. Both
// the daemon and the deps command use this to share one requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.ToolRequirements(cfg))
}
