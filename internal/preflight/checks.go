package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"mvspipe/internal/config"
	"mvspipe/internal/deps"
	"mvspipe/internal/patchmatch"
	"mvspipe/internal/workspace"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWorkspace reports the workspace state. Both stages write into the
// workspace, so it must be a writable directory to pass.
func CheckWorkspace(path string) Result {
	const name = "Workspace"
	access := CheckDirectoryAccess(name, path)
	if !access.Passed {
		return access
	}
	readiness := workspace.Evaluate(path)
	detail := fmt.Sprintf("%s (%s)", path, readiness.State())
	if missing := workspace.Missing(path); len(missing) > 0 {
		detail = fmt.Sprintf("%s (%s, missing: %s)", path, readiness.State(), strings.Join(missing, ", "))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckPatchMatchConfig verifies the dense stage config of a ready workspace
// can be read and names at least one reference image.
func CheckPatchMatchConfig(path string) Result {
	const name = "Patch-match config"
	layout := workspace.NewLayout(path)
	items, err := patchmatch.ReadReferenceImages(layout.Config)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", layout.Config, err)}
	}
	if len(items) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no reference images)", layout.Config)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d reference images)", layout.Config, len(items))}
}

// CheckSystemDeps evaluates the external binaries and the GPU accelerator.
// The accelerator is optional because only the run stage needs it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.StageRequirements(cfg.Colmap.Binary))
	accel := deps.NewAccelerator(cfg.Accelerator.Force, cfg.Accelerator.QueryBinary).Status()
	accel.Optional = true
	return append(statuses, accel)
}
