package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mvspipe/internal/history"
	"mvspipe/internal/jobs"
	"mvspipe/internal/services"
	"mvspipe/internal/testsupport"
)

type fakeRecon int

func (f fakeRecon) NumRegImages() int { return int(f) }

type fakeAccel bool

func (f fakeAccel) Available() bool { return bool(f) }

func waitDone(t *testing.T, h *jobs.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish", h.ID)
	}
}

func noop(context.Context, jobs.Request) error { return nil }

func TestPrepareRequiresTwoRegisteredImages(t *testing.T) {
	called := make(chan struct{}, 1)
	d := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, func(context.Context, jobs.Request) error {
		called <- struct{}{}
		return nil
	}))

	cases := []struct {
		name  string
		recon jobs.Reconstruction
	}{
		{name: "nil reconstruction", recon: nil},
		{name: "zero images", recon: fakeRecon(0)},
		{name: "single image", recon: fakeRecon(1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Workspace: "/ws", Reconstruction: tc.recon})
			if !errors.Is(err, services.ErrPreconditionUnmet) {
				t.Fatalf("expected precondition error, got %v", err)
			}
			if h != nil {
				t.Fatal("expected no handle on rejection")
			}
			if d.Busy(jobs.StagePrepare) {
				t.Fatal("rejected launch must not mark stage busy")
			}
		})
	}
	select {
	case <-called:
		t.Fatal("work must not run when preconditions fail")
	default:
	}

	h, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Workspace: "/ws", Reconstruction: fakeRecon(2)})
	if err != nil {
		t.Fatalf("Launch with 2 images: %v", err)
	}
	waitDone(t, h)
}

func TestRunRequiresAccelerator(t *testing.T) {
	d := jobs.NewDispatcher(jobs.WithWork(jobs.StageRun, noop), jobs.WithAccelerator(fakeAccel(false)))
	if _, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"}); !errors.Is(err, services.ErrPreconditionUnmet) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	d = jobs.NewDispatcher(jobs.WithWork(jobs.StageRun, noop))
	if _, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"}); !errors.Is(err, services.ErrPreconditionUnmet) {
		t.Fatalf("expected precondition error without accelerator, got %v", err)
	}

	d = jobs.NewDispatcher(jobs.WithWork(jobs.StageRun, noop), jobs.WithAccelerator(fakeAccel(true)))
	h, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, h)
	if h.Err() != nil {
		t.Fatalf("unexpected job error %v", h.Err())
	}
}

func TestSecondLaunchWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StageRun, func(context.Context, jobs.Request) error {
			<-release
			return nil
		}),
		jobs.WithAccelerator(fakeAccel(true)),
	)

	first, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"})
	if err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	if !d.Busy(jobs.StageRun) || len(d.InFlight()) != 1 {
		t.Fatal("expected run stage to be busy")
	}

	second, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"})
	if !errors.Is(err, services.ErrStageBusy) || !jobs.IsBusy(err) {
		t.Fatalf("expected busy error, got %v", err)
	}
	if second != nil {
		t.Fatal("expected no handle for rejected launch")
	}

	close(release)
	waitDone(t, first)
	if first.Running() {
		t.Fatal("handle should report finished")
	}
	if first.FinishedAt().Before(first.StartedAt) {
		t.Fatal("finish time precedes start time")
	}
	if d.Busy(jobs.StageRun) {
		t.Fatal("stage should be idle after completion")
	}

	again, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"})
	if err != nil {
		t.Fatalf("relaunch after completion: %v", err)
	}
	waitDone(t, again)
	if again.ID == first.ID {
		t.Fatal("expected a fresh job id")
	}
}

func TestStagesRunIndependently(t *testing.T) {
	release := make(chan struct{})
	block := func(context.Context, jobs.Request) error {
		<-release
		return nil
	}
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StagePrepare, block),
		jobs.WithWork(jobs.StageRun, block),
		jobs.WithAccelerator(fakeAccel(true)),
	)
	prep, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(5)})
	if err != nil {
		t.Fatalf("prepare Launch: %v", err)
	}
	run, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{})
	if err != nil {
		t.Fatalf("run Launch: %v", err)
	}
	if got := d.InFlight(); len(got) != 2 || got[0].Stage != jobs.StagePrepare || got[1].Stage != jobs.StageRun {
		t.Fatalf("unexpected in-flight handles %#v", got)
	}
	close(release)
	waitDone(t, prep)
	waitDone(t, run)
}

func TestFailedJobStillCompletes(t *testing.T) {
	boom := errors.New("tool crashed")
	d := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, func(context.Context, jobs.Request) error {
		return boom
	}))
	h, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(3)})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, h)
	if !errors.Is(h.Err(), boom) {
		t.Fatalf("expected job error, got %v", h.Err())
	}
	if d.Busy(jobs.StagePrepare) {
		t.Fatal("failed job must release the stage")
	}
}

func TestPanickingJobReportsError(t *testing.T) {
	d := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, func(context.Context, jobs.Request) error {
		panic("unexpected")
	}))
	h, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(3)})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, h)
	if h.Err() == nil {
		t.Fatal("expected panic to surface as error")
	}
}

func TestJobContextCarriesIdentity(t *testing.T) {
	seen := make(chan [3]string, 1)
	d := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, func(ctx context.Context, req jobs.Request) error {
		id, _ := services.JobIDFromContext(ctx)
		stage, _ := services.StageFromContext(ctx)
		ws, _ := services.WorkspaceFromContext(ctx)
		seen <- [3]string{id, stage, ws}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	h, err := d.Launch(ctx, jobs.StagePrepare, jobs.Request{Workspace: "/ws", Reconstruction: fakeRecon(2)})
	cancel()
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, h)
	got := <-seen
	if got[0] != h.ID || got[1] != "prepare" || got[2] != "/ws" {
		t.Fatalf("unexpected context identity %v", got)
	}
	if h.Err() != nil {
		t.Fatalf("caller cancellation must not abort the job: %v", h.Err())
	}
}

func TestLaunchValidation(t *testing.T) {
	d := jobs.NewDispatcher()
	if _, err := d.Launch(context.Background(), jobs.Stage("fuse"), jobs.Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := d.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(2)}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLockDirBlocksSecondDispatcher(t *testing.T) {
	lockDir := t.TempDir()
	release := make(chan struct{})
	block := func(context.Context, jobs.Request) error {
		<-release
		return nil
	}
	first := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, block), jobs.WithLockDir(lockDir))
	second := jobs.NewDispatcher(jobs.WithWork(jobs.StagePrepare, noop), jobs.WithLockDir(lockDir))

	h, err := first.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(2)})
	if err != nil {
		t.Fatalf("first Launch: %v", err)
	}
	if _, err := second.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(2)}); !errors.Is(err, services.ErrStageBusy) {
		t.Fatalf("expected lock contention to report busy, got %v", err)
	}
	close(release)
	waitDone(t, h)

	h2, err := second.Launch(context.Background(), jobs.StagePrepare, jobs.Request{Reconstruction: fakeRecon(2)})
	if err != nil {
		t.Fatalf("Launch after release: %v", err)
	}
	waitDone(t, h2)
}

func TestRecorderCapturesRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	boom := errors.New("exit status 2")
	d := jobs.NewDispatcher(
		jobs.WithWork(jobs.StageRun, func(context.Context, jobs.Request) error { return boom }),
		jobs.WithAccelerator(fakeAccel(true)),
		jobs.WithRecorder(store),
	)
	h, err := d.Launch(context.Background(), jobs.StageRun, jobs.Request{Workspace: "/ws"})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	waitDone(t, h)

	run, err := store.Get(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.Stage != "run" || run.Workspace != "/ws" || run.Status() != history.StatusFailed {
		t.Fatalf("unexpected recorded run %#v", run)
	}
}

func TestStageLabels(t *testing.T) {
	if got := jobs.StagePrepare.Label(); got != "Prepare" {
		t.Fatalf("Label = %q", got)
	}
	stage, err := jobs.ParseStage(" RUN ")
	if err != nil || stage != jobs.StageRun {
		t.Fatalf("ParseStage = %q, %v", stage, err)
	}
	if _, err := jobs.ParseStage("fuse"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}
