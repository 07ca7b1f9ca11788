package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/jobs"
	"mvspipe/internal/reconstruction"
	"mvspipe/internal/services"
	"mvspipe/internal/testsupport"
	"mvspipe/internal/workflow"
	"mvspipe/internal/workspace"
)

type gpu bool

func (g gpu) Available() bool { return bool(g) }

type countingLauncher struct {
	calls int
}

func (c *countingLauncher) Launch(context.Context, jobs.Stage, jobs.Request) (*jobs.Handle, error) {
	c.calls++
	return nil, errors.New("unexpected launch")
}

func touchWork(rel string, result error) jobs.Work {
	return func(_ context.Context, req jobs.Request) error {
		path := filepath.Join(req.Workspace, filepath.FromSlash(rel))
		if err := os.WriteFile(path, []byte{0}, 0o644); err != nil {
			return err
		}
		return result
	}
}

func TestSetWorkspaceReadyBuildsGridInConfigOrder(t *testing.T) {
	root := testsupport.NewWorkspace(t, testsupport.WithConfigLines("# c", "img1.jpg", "pose1", "img2.jpg", "pose2"))
	orch := workflow.New(jobs.NewDispatcher(), nil)

	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	if orch.State() != workspace.StateReady {
		t.Fatalf("state = %s, want ready", orch.State())
	}
	grid := orch.Grid()
	if len(grid) != 2 || grid[0].Item != "img1.jpg" || grid[1].Item != "img2.jpg" {
		t.Fatalf("unexpected grid %#v", grid)
	}
	counts := grid.Counts()
	if counts != (artifacts.Counts{}) {
		t.Fatalf("expected no artifacts, got %#v", counts)
	}
	if snap := orch.Snapshot(); snap.Workspace != root || snap.Generation != 1 || len(snap.Missing) != 0 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
}

func TestSetWorkspaceStates(t *testing.T) {
	orch := workflow.New(nil, nil)

	if err := orch.SetWorkspace(filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Fatalf("SetWorkspace missing: %v", err)
	}
	if orch.State() != workspace.StateInvalid || len(orch.Grid()) != 0 {
		t.Fatalf("expected invalid empty snapshot, got %#v", orch.Snapshot())
	}
	if got := orch.Snapshot().Missing; len(got) != 1 || got[0] != "." {
		t.Fatalf("unexpected missing list %v", got)
	}

	if err := orch.SetWorkspace(t.TempDir()); err != nil {
		t.Fatalf("SetWorkspace empty dir: %v", err)
	}
	readiness := orch.Readiness()
	if !readiness.PrepareEnabled || readiness.RunEnabled || orch.State() != workspace.StatePrepared {
		t.Fatalf("unexpected readiness %#v", readiness)
	}
	if len(orch.Snapshot().Missing) == 0 {
		t.Fatal("expected missing entries for an empty directory")
	}
}

func TestRequestsRejectInvalidWorkspace(t *testing.T) {
	launcher := &countingLauncher{}
	orch := workflow.New(launcher, nil)
	if err := orch.SetWorkspace(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}

	if _, err := orch.RequestPrepare(context.Background(), &reconstruction.Reconstruction{RegisteredImages: 10}); !errors.Is(err, services.ErrInvalidWorkspace) {
		t.Fatalf("expected invalid workspace, got %v", err)
	}
	if _, err := orch.RequestRun(context.Background(), 0); !errors.Is(err, services.ErrInvalidWorkspace) {
		t.Fatalf("expected invalid workspace, got %v", err)
	}
	if launcher.calls != 0 {
		t.Fatalf("launcher called %d times", launcher.calls)
	}
	if orch.State() != workspace.StateInvalid {
		t.Fatalf("state = %s, want invalid", orch.State())
	}
}

func TestSnapshotErrMarksInvalidWorkspace(t *testing.T) {
	orch := workflow.New(nil, nil)
	missing := filepath.Join(t.TempDir(), "missing")
	if err := orch.SetWorkspace(missing); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	err := orch.Snapshot().Err()
	if !errors.Is(err, services.ErrInvalidWorkspace) {
		t.Fatalf("expected invalid workspace marker, got %v", err)
	}
	if msg := services.UserMessage(err); !strings.Contains(msg, missing) {
		t.Fatalf("message %q does not name the workspace", msg)
	}

	if err := orch.SetWorkspace(t.TempDir()); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	if err := orch.Snapshot().Err(); err != nil {
		t.Fatalf("prepared workspace reported %v", err)
	}
}

func TestRunRejectedUntilWorkspaceReady(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{name: "no patch-match config", entry: workspace.PatchMatchConfig},
		{name: "no depth maps", entry: workspace.DepthMapsDir},
		{name: "no sparse model", entry: workspace.SparseDir},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := testsupport.NewWorkspace(t, testsupport.WithoutEntry(tc.entry))
			ran := false
			d := jobs.NewDispatcher(
				jobs.WithWork(jobs.StageRun, func(context.Context, jobs.Request) error {
					ran = true
					return nil
				}),
				jobs.WithAccelerator(gpu(true)),
			)
			orch := workflow.New(d, nil)
			if err := orch.SetWorkspace(root); err != nil {
				t.Fatalf("SetWorkspace: %v", err)
			}
			before := orch.Snapshot()
			if before.State() != workspace.StatePrepared {
				t.Fatalf("state = %s, want prepared", before.State())
			}

			handle, err := orch.RequestRun(context.Background(), 0)
			if !errors.Is(err, services.ErrPreconditionUnmet) {
				t.Fatalf("expected precondition error, got %v", err)
			}
			if handle != nil {
				t.Fatal("expected no handle")
			}
			if !strings.Contains(services.UserMessage(err), tc.entry) {
				t.Fatalf("message %q does not name %s", services.UserMessage(err), tc.entry)
			}
			orch.Wait()
			if ran {
				t.Fatal("stereo work ran from a prepared workspace")
			}
			if d.Busy(jobs.StageRun) {
				t.Fatal("run stage left busy")
			}
			if after := orch.Snapshot(); after.Generation != before.Generation {
				t.Fatalf("state changed after rejected run: generation %d -> %d", before.Generation, after.Generation)
			}
		})
	}
}

func TestWorkspaceRemovedAfterSelectionResetsToInvalid(t *testing.T) {
	root := testsupport.NewWorkspace(t)
	orch := workflow.New(&countingLauncher{}, nil)
	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("remove workspace: %v", err)
	}
	if _, err := orch.RequestRun(context.Background(), 0); !errors.Is(err, services.ErrInvalidWorkspace) {
		t.Fatalf("expected invalid workspace, got %v", err)
	}
	if orch.State() != workspace.StateInvalid || len(orch.Grid()) != 0 {
		t.Fatalf("expected reset to invalid, got %#v", orch.Snapshot())
	}
}

func TestPrepareWithSingleImageLeavesStateUnchanged(t *testing.T) {
	root := t.TempDir()
	orch := workflow.New(jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, touchWork("never", nil))), nil)
	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	before := orch.Snapshot()

	handle, err := orch.RequestPrepare(context.Background(), &reconstruction.Reconstruction{RegisteredImages: 1})
	if !errors.Is(err, services.ErrPreconditionUnmet) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if handle != nil {
		t.Fatal("expected no handle")
	}
	if _, err := orch.RequestPrepare(context.Background(), nil); !errors.Is(err, services.ErrPreconditionUnmet) {
		t.Fatalf("expected precondition error for nil reconstruction, got %v", err)
	}
	orch.Wait()
	if after := orch.Snapshot(); after.Generation != before.Generation || after.State() != before.State() {
		t.Fatalf("state changed after rejected launch: %#v -> %#v", before, after)
	}
}

func TestRunCompletionRebuildsAndPublishes(t *testing.T) {
	root := testsupport.NewWorkspace(t)
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StageRun, touchWork("dense/depth_maps/img1.jpg.photometric.bin", nil)),
		jobs.WithAccelerator(gpu(true)),
	)
	orch := workflow.New(d, nil)
	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	updates, cancel := orch.Subscribe()
	defer cancel()

	handle, err := orch.RequestRun(context.Background(), 0)
	if err != nil {
		t.Fatalf("RequestRun: %v", err)
	}
	orch.Wait()
	if handle.Err() != nil {
		t.Fatalf("job failed: %v", handle.Err())
	}

	select {
	case snap := <-updates:
		row, ok := snap.Grid.Find("img1.jpg")
		if !ok || !row.Photometric.Depth.Exists {
			t.Fatalf("published snapshot missing new artifact: %#v", snap.Grid)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot published after completion")
	}

	grid := orch.Grid()
	if !grid[0].Photometric.Depth.Exists || grid[0].Photometric.Normal.Exists || grid[0].Geometric.Depth.Exists {
		t.Fatalf("unexpected flags for img1: %#v", grid[0])
	}
	if grid[1].Photometric.Depth.Exists {
		t.Fatalf("img2 should have no artifacts: %#v", grid[1])
	}
	if orch.LastError() != nil {
		t.Fatalf("unexpected last error %v", orch.LastError())
	}
}

func TestFailedJobStillRebuilds(t *testing.T) {
	root := testsupport.NewWorkspace(t)
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StageRun, touchWork("dense/normal_maps/img2.jpg.geometric.bin", errors.New("stereo crashed"))),
		jobs.WithAccelerator(gpu(true)),
	)
	orch := workflow.New(d, nil)
	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}
	before := orch.Snapshot().Generation

	handle, err := orch.RequestRun(context.Background(), 0)
	if err != nil {
		t.Fatalf("RequestRun: %v", err)
	}
	orch.Wait()
	if handle.Err() == nil {
		t.Fatal("expected job failure")
	}
	snap := orch.Snapshot()
	if snap.Generation != before+1 {
		t.Fatalf("expected one rebuild after completion, generation %d -> %d", before, snap.Generation)
	}
	row, _ := snap.Grid.Find("img2.jpg")
	if !row.Geometric.Normal.Exists {
		t.Fatalf("expected artifact written before failure to be visible: %#v", row)
	}
}

func TestSecondRunWhileInFlightIsRejected(t *testing.T) {
	root := testsupport.NewWorkspace(t)
	release := make(chan struct{})
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StageRun, func(context.Context, jobs.Request) error {
			<-release
			return nil
		}),
		jobs.WithAccelerator(gpu(true)),
	)
	orch := workflow.New(d, nil)
	if err := orch.SetWorkspace(root); err != nil {
		t.Fatalf("SetWorkspace: %v", err)
	}

	if _, err := orch.RequestRun(context.Background(), 0); err != nil {
		t.Fatalf("first RequestRun: %v", err)
	}
	if _, err := orch.RequestRun(context.Background(), 0); !errors.Is(err, services.ErrStageBusy) {
		t.Fatalf("expected busy rejection, got %v", err)
	}
	close(release)
	orch.Wait()
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	orch := workflow.New(nil, nil)
	updates, cancel := orch.Subscribe()
	cancel()
	cancel()
	if _, ok := <-updates; ok {
		t.Fatal("expected closed channel after cancel")
	}
	if err := orch.SetWorkspace(t.TempDir()); err != nil {
		t.Fatalf("SetWorkspace after cancel: %v", err)
	}
}

func TestSlowSubscriberSeesLatestSnapshot(t *testing.T) {
	orch := workflow.New(nil, nil)
	updates, cancel := orch.Subscribe()
	defer cancel()

	first := t.TempDir()
	second := t.TempDir()
	if err := orch.SetWorkspace(first); err != nil {
		t.Fatalf("SetWorkspace first: %v", err)
	}
	if err := orch.SetWorkspace(second); err != nil {
		t.Fatalf("SetWorkspace second: %v", err)
	}
	snap := <-updates
	if snap.Workspace != second || snap.Generation != 2 {
		t.Fatalf("expected latest snapshot, got %#v", snap)
	}
}
