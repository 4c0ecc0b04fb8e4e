// Package deps reports whether the external binaries a run shells out to
// are present.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Status reports the availability of one binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Resolve locates binary. A value containing a path separator must name an
// executable file; a bare name is looked up on PATH and Command is set to
// the resolved path.
func Resolve(name, binary, description string) Status {
	status := Status{Name: name, Description: description, Command: strings.TrimSpace(binary)}
	switch {
	case status.Command == "":
		status.Detail = "command not configured"
	case strings.ContainsRune(status.Command, filepath.Separator):
		info, err := os.Stat(status.Command)
		if err != nil || !isExecutable(info) {
			status.Detail = fmt.Sprintf("binary %q is not executable", status.Command)
			break
		}
		status.Available = true
	default:
		resolved, err := exec.LookPath(status.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			break
		}
		status.Command = resolved
		status.Available = true
	}
	return status
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode().Perm()&0o111 != 0
}
