package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/jobs"
	"mvspipe/internal/logging"
	"mvspipe/internal/reconstruction"
	"mvspipe/internal/services"
	"mvspipe/internal/workspace"
)

// Launcher starts stage jobs. *jobs.Dispatcher satisfies it.
type Launcher interface {
	Launch(ctx context.Context, stage jobs.Stage, req jobs.Request) (*jobs.Handle, error)
}

var (
	rebuildAborted = logging.Event{Type: "rebuild_failed", Hint: "check that dense/patch-match.cfg is readable"}
	runNotReady    = logging.Event{Type: "request_rejected", Hint: "run prepare first"}
)

// Orchestrator owns the active workspace path and the snapshot derived from
// it. Every change of path and every job completion triggers a full rebuild;
// the new snapshot replaces the old one in a single step so readers never see
// a partially built grid.
type Orchestrator struct {
	launcher Launcher
	logger   *slog.Logger
	build    func(path string) (Snapshot, error)

	// rebuildMu serializes rebuilds end to end.
	rebuildMu sync.Mutex

	mu         sync.RWMutex
	snapshot   Snapshot
	generation uint64
	lastErr    error

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int

	jobs sync.WaitGroup
}

// New constructs an orchestrator with no workspace selected.
func New(launcher Launcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		launcher: launcher,
		logger:   logging.NewComponentLogger(logger, "workflow"),
		build:    buildSnapshot,
		subs:     make(map[int]chan Snapshot),
	}
}

// SetWorkspace makes path the active workspace and rebuilds. A config read
// failure leaves the previous snapshot, path included, in place and is
// returned. A path that is not a directory still replaces the snapshot; the
// resulting Invalid state is reported through Snapshot.Err.
func (o *Orchestrator) SetWorkspace(path string) error {
	path = strings.TrimSpace(path)
	_, err := o.rebuild(path)
	return err
}

func (o *Orchestrator) rebuild(path string) (Snapshot, error) {
	o.rebuildMu.Lock()
	defer o.rebuildMu.Unlock()

	snap, err := o.build(path)
	if err != nil {
		rebuildAborted.Error(o.logger, "workspace rebuild aborted", logging.Workspace(path), logging.Error(err))
		return Snapshot{}, err
	}

	o.mu.Lock()
	o.generation++
	snap.Generation = o.generation
	o.snapshot = snap
	o.mu.Unlock()

	o.logger.Debug("workspace rebuilt",
		logging.Workspace(path),
		logging.String("state", string(snap.State())),
		logging.Int("rows", len(snap.Grid)),
	)
	o.publish(snap)
	return snap, nil
}

// RequestPrepare launches the prepare stage for recon against the active workspace.
func (o *Orchestrator) RequestPrepare(ctx context.Context, recon *reconstruction.Reconstruction) (*jobs.Handle, error) {
	req := jobs.Request{}
	if recon != nil {
		req.Reconstruction = recon
		req.ModelPath = recon.ModelPath
		req.ImagePath = recon.ImagePath
	}
	return o.request(ctx, jobs.StagePrepare, req)
}

// RequestRun launches dense stereo against the active workspace. A zero
// maxImageSize uses the configured default.
func (o *Orchestrator) RequestRun(ctx context.Context, maxImageSize int) (*jobs.Handle, error) {
	return o.request(ctx, jobs.StageRun, jobs.Request{MaxImageSize: maxImageSize})
}

func (o *Orchestrator) request(ctx context.Context, stage jobs.Stage, req jobs.Request) (*jobs.Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path := o.Workspace()
	readiness := workspace.Evaluate(path)
	if !readiness.PrepareEnabled {
		// Resets the published state to Invalid.
		if _, err := o.rebuild(path); err != nil {
			o.logger.Warn("rebuild after invalid workspace failed", logging.Error(err))
		}
		return nil, invalidWorkspace(string(stage), path)
	}
	if stage == jobs.StageRun && !readiness.RunEnabled {
		missing := workspace.Missing(path)
		runNotReady.Warn(o.logger, "run request rejected",
			logging.Workspace(path),
			logging.String("missing", strings.Join(missing, ", ")),
		)
		return nil, services.Wrap(services.ErrPreconditionUnmet, string(stage), "request",
			fmt.Sprintf("workspace %q is not ready for stereo; missing %s", path, strings.Join(missing, ", ")), nil)
	}
	if o.launcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "request", "no job launcher configured", nil)
	}

	req.Workspace = path
	handle, err := o.launcher.Launch(ctx, stage, req)
	if err != nil {
		logging.Event{Type: "request_rejected", Hint: services.UserMessage(err)}.Warn(o.logger,
			stage.Label()+" request rejected",
			logging.Workspace(path),
			logging.Error(err),
		)
		return nil, err
	}

	o.jobs.Add(1)
	go o.awaitCompletion(handle)
	return handle, nil
}

func (o *Orchestrator) awaitCompletion(handle *jobs.Handle) {
	defer o.jobs.Done()
	<-handle.Done()

	if _, err := o.rebuild(o.Workspace()); err != nil {
		o.setLastError(err)
		return
	}
	o.setLastError(nil)
}

// Wait blocks until every launched job has completed and its rebuild finished.
func (o *Orchestrator) Wait() {
	o.jobs.Wait()
}

// Workspace returns the active workspace path.
func (o *Orchestrator) Workspace() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot.Workspace
}

// Snapshot returns the most recently published snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Readiness returns the readiness of the current snapshot.
func (o *Orchestrator) Readiness() workspace.Readiness {
	return o.Snapshot().Readiness
}

// State returns the workspace state of the current snapshot.
func (o *Orchestrator) State() workspace.State {
	return o.Snapshot().State()
}

// Grid returns the artifact grid of the current snapshot.
func (o *Orchestrator) Grid() artifacts.Grid {
	return o.Snapshot().Grid
}

// LastError returns the error from the most recent completion-triggered rebuild.
func (o *Orchestrator) LastError() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

func (o *Orchestrator) setLastError(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}
