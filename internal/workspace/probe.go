package workspace

import (
	"os"
	"strings"
)

// Readiness reports which pipeline stages can be invoked for a workspace.
type Readiness struct {
	PrepareEnabled bool `json:"prepare_enabled"`
	RunEnabled     bool `json:"run_enabled"`
}

// State is the orchestrator-facing summary of a Readiness value.
type State string

const (
	StateInvalid  State = "invalid"
	StatePrepared State = "prepared"
	StateReady    State = "ready"
)

// State maps readiness onto the three workspace states.
func (r Readiness) State() State {
	switch {
	case !r.PrepareEnabled:
		return StateInvalid
	case !r.RunEnabled:
		return StatePrepared
	default:
		return StateReady
	}
}

// Evaluate probes path and reports stage readiness. It never fails: missing,
// inaccessible, or non-directory paths simply disable the stages.
func Evaluate(path string) Readiness {
	if !IsDir(path) {
		return Readiness{}
	}
	return Readiness{
		PrepareEnabled: true,
		RunEnabled:     len(missing(NewLayout(path))) == 0,
	}
}

// Missing lists the required entries (relative paths) absent from the
// workspace at path. A path that is not a directory reports only ".".
func Missing(path string) []string {
	if !IsDir(path) {
		return []string{"."}
	}
	return missing(NewLayout(path))
}

func missing(layout Layout) []string {
	var absent []string
	for _, rel := range requiredDirs {
		if !IsDir(join(layout.Root, rel)) {
			absent = append(absent, rel)
		}
	}
	if !IsRegularFile(layout.Config) {
		absent = append(absent, PatchMatchConfig)
	}
	return absent
}

// IsDir reports whether path names an existing directory. Stat errors count as absent.
func IsDir(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsRegularFile reports whether path names an existing regular file.
func IsRegularFile(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
