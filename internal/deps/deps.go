package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external program that one or more pipeline stages run.
type Requirement struct {
	Name     string
	Command  string
	Stages   []string
	Optional bool
}

// Status is a Requirement after its command has been resolved.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// UsedBy renders the stages that need the requirement, e.g. "prepare, run".
func (s Status) UsedBy() string {
	return strings.Join(s.Stages, ", ")
}

// CheckBinaries resolves each requirement's command through PATH. Commands
// that contain a path separator are checked as given.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, len(requirements))
	for i, req := range requirements {
		results[i] = resolve(req, exec.LookPath)
	}
	return results
}

func resolve(req Requirement, lookPath func(string) (string, error)) Status {
	req.Command = strings.TrimSpace(req.Command)
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := lookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Path = path
	status.Available = true
	return status
}

// StageRequirements returns the binaries the prepare and run stages execute.
func StageRequirements(colmapBinary string) []Requirement {
	return []Requirement{
		{Name: "COLMAP", Command: colmapBinary, Stages: []string{"prepare", "run"}},
	}
}
