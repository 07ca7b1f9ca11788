package deps

import (
	"os/exec"
	"strings"
)

// Accelerator detection modes.
const (
	ModeAuto     = "auto"
	ModeEnabled  = "enabled"
	ModeDisabled = "disabled"
)

// Accelerator reports whether GPU-backed dense stereo can run on this host.
//
// In auto mode a GPU counts as present when the query binary (nvidia-smi by
// default) resolves on PATH. The enabled/disabled modes skip detection.
type Accelerator struct {
	Mode        string
	QueryBinary string

	lookPath func(string) (string, error)
}

// NewAccelerator constructs an accelerator probe.
func NewAccelerator(mode, queryBinary string) *Accelerator {
	return &Accelerator{
		Mode:        strings.ToLower(strings.TrimSpace(mode)),
		QueryBinary: strings.TrimSpace(queryBinary),
		lookPath:    exec.LookPath,
	}
}

// Available reports whether the accelerator can be used.
func (a *Accelerator) Available() bool {
	return a.Status().Available
}

// Status evaluates the accelerator as a requirement of the run stage.
func (a *Accelerator) Status() Status {
	req := Requirement{Name: "GPU", Command: a.QueryBinary, Stages: []string{"run"}}
	switch a.Mode {
	case ModeEnabled:
		return Status{Requirement: req, Available: true, Detail: "forced on by configuration"}
	case ModeDisabled:
		return Status{Requirement: req, Detail: "disabled by configuration"}
	}

	lookPath := a.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	status := resolve(req, lookPath)
	if !status.Available && status.Command == "" {
		status.Detail = "query binary not configured"
	}
	return status
}
