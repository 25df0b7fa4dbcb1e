package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement is one external tool a session invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional tools degrade a feature instead of blocking the session.
	Optional bool
}

// Status is the outcome of resolving a Requirement.
type Status struct {
	Requirement
	Available bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

var errNotExecutable = errors.New("not executable")

// CheckBinaries resolves every requirement against PATH, or against the
// filesystem when the command names a path.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results = append(results, check(req))
	}
	return results
}

func check(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := resolve(req.Command)
	switch {
	case errors.Is(err, errNotExecutable):
		status.Detail = fmt.Sprintf("%s is not executable", req.Command)
	case err != nil:
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
	default:
		status.Available = true
		status.Path = resolved
	}
	return status
}

func resolve(command string) (string, error) {
	if !strings.ContainsRune(command, os.PathSeparator) {
		return exec.LookPath(command)
	}
	info, err := os.Stat(command)
	if err != nil {
		return "", err
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", errNotExecutable
	}
	return command, nil
}
