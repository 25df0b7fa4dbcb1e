// Package bsdtar builds the command that extracts a single archive member.
package bsdtar

import (
	"strings"

	"wspsr/internal/procexec"
)

// ExtractArgs extracts member from archive into the working directory
// without overwriting existing files.
func ExtractArgs(archive, member string) []string {
	return []string{"-x", "-k", "-f", archive, member}
}

// NewCommand returns the extraction command, run in dir.
func NewCommand(binary, archive, member, dir string) procexec.Command {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "bsdtar"
	}
	return procexec.Command{Program: binary, Args: ExtractArgs(archive, member), Dir: dir}
}
