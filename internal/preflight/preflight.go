package preflight

import (
	"context"
	"strings"

	"mvspipe/internal/config"
	"mvspipe/internal/workspace"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// RunAll executes every applicable check. The workspace checks are skipped
// when workspacePath is empty, and the patch-match config is only read for a
// ready workspace.
func RunAll(ctx context.Context, cfg *config.Config, workspacePath string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if path := strings.TrimSpace(workspacePath); path != "" {
		results = append(results, CheckWorkspace(path))
		if workspace.Evaluate(path).RunEnabled {
			results = append(results, CheckPatchMatchConfig(path))
		}
	}
	if ctx.Err() != nil {
		return results
	}

	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Detail
		if status.Available && detail == "" {
			detail = status.Path
		}
		if usedBy := status.UsedBy(); usedBy != "" {
			detail += " (" + usedBy + ")"
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
