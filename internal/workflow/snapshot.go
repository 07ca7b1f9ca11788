package workflow

import (
	"fmt"
	"time"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/patchmatch"
	"mvspipe/internal/services"
	"mvspipe/internal/workspace"
)

// Snapshot is one complete result of probing a workspace and building its
// artifact grid. Snapshots are immutable once published.
type Snapshot struct {
	Workspace  string              `json:"workspace"`
	Readiness  workspace.Readiness `json:"readiness"`
	Missing    []string            `json:"missing,omitempty"`
	Grid       artifacts.Grid      `json:"grid"`
	BuiltAt    time.Time           `json:"built_at"`
	Generation uint64              `json:"generation"`
}

// State derives the workspace state from readiness.
func (s Snapshot) State() workspace.State {
	return s.Readiness.State()
}

// Err reports why the snapshot's workspace cannot be used at all. It is nil
// unless the state is Invalid, and marked services.ErrInvalidWorkspace
// otherwise.
func (s Snapshot) Err() error {
	if s.Readiness.PrepareEnabled {
		return nil
	}
	return invalidWorkspace("", s.Workspace)
}

func invalidWorkspace(stage, path string) error {
	if path == "" {
		return services.Wrap(services.ErrInvalidWorkspace, stage, "probe", "no workspace selected", nil)
	}
	return services.Wrap(services.ErrInvalidWorkspace, stage, "probe",
		fmt.Sprintf("workspace %q is not a directory", path), nil)
}

// buildSnapshot probes path and, when the workspace is run-enabled, parses
// the patch-match config and builds the grid. A config read failure aborts
// the build.
func buildSnapshot(path string) (Snapshot, error) {
	snap := Snapshot{
		Workspace: path,
		Readiness: workspace.Evaluate(path),
		BuiltAt:   time.Now(),
	}
	if !snap.Readiness.RunEnabled {
		snap.Missing = workspace.Missing(path)
		return snap, nil
	}
	layout := workspace.NewLayout(path)
	items, err := patchmatch.ReadReferenceImages(layout.Config)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Grid = artifacts.BuildForLayout(items, layout)
	return snap, nil
}
