package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mvspipe/internal/history"
	"mvspipe/internal/logging"
	"mvspipe/internal/services"
)

// Reconstruction is the sparse model summary prepare depends on.
type Reconstruction interface {
	NumRegImages() int
}

// Capability reports whether a hardware feature is usable.
type Capability interface {
	Available() bool
}

// Recorder persists job runs. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
	Finish(ctx context.Context, id string, finishedAt time.Time, errMsg string) error
}

// Request carries the inputs for one stage launch.
type Request struct {
	Workspace      string
	Reconstruction Reconstruction
	ModelPath      string
	ImagePath      string
	MaxImageSize   int
}

// Work is the body executed on the job goroutine.
type Work func(ctx context.Context, req Request) error

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWork sets the body run for stage.
func WithWork(stage Stage, work Work) Option {
	return func(d *Dispatcher) {
		if work != nil {
			d.work[stage] = work
		}
	}
}

// WithAccelerator sets the GPU capability checked before run.
func WithAccelerator(accel Capability) Option {
	return func(d *Dispatcher) {
		d.accel = accel
	}
}

// WithLockDir enables cross-process stage locks stored in dir.
func WithLockDir(dir string) Option {
	return func(d *Dispatcher) {
		d.lockDir = dir
	}
}

// WithRecorder records every launch and completion.
func WithRecorder(rec Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = rec
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logging.NewComponentLogger(logger, "jobs")
		}
	}
}

// Dispatcher launches stage jobs in the background, one in flight per stage.
type Dispatcher struct {
	mu       sync.Mutex
	inFlight map[Stage]*Handle

	work     map[Stage]Work
	accel    Capability
	lockDir  string
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		inFlight: make(map[Stage]*Handle),
		work:     make(map[Stage]Work),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Launch checks stage preconditions and starts the job. On error nothing was
// started and no state changed.
func (d *Dispatcher) Launch(ctx context.Context, stage Stage, req Request) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !stage.Valid() {
		return nil, services.Wrap(services.ErrValidation, string(stage), "launch", "unknown stage", nil)
	}
	work, ok := d.work[stage]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, string(stage), "launch", "no work registered for stage", nil)
	}
	if err := d.checkPreconditions(stage, req); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if current := d.inFlight[stage]; current != nil {
		d.mu.Unlock()
		return nil, services.Wrap(services.ErrStageBusy, string(stage), "launch",
			fmt.Sprintf("job %s is still running", current.ID), nil)
	}
	lock, err := d.acquireLock(stage)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	handle := newHandle(uuid.NewString(), stage, req.Workspace, d.now())
	d.inFlight[stage] = handle
	d.mu.Unlock()

	jobCtx := services.JobScope(context.WithoutCancel(ctx), handle.ID, string(stage), req.Workspace)
	logger := logging.WithContext(jobCtx, d.logger)

	if d.recorder != nil {
		run := history.Run{ID: handle.ID, Stage: string(stage), Workspace: req.Workspace, StartedAt: handle.StartedAt}
		if err := d.recorder.Record(jobCtx, run); err != nil {
			historyWriteFailed.Warn(logger, "failed to record job start",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job will be missing from history"),
			)
		}
	}
	logger.Info(stage.Label()+" job started", logging.String(logging.FieldEventType, "job_start"))

	go d.execute(jobCtx, handle, lock, work, req, logger)
	return handle, nil
}

var (
	historyWriteFailed = logging.Event{Type: "history_record_failed", Hint: "check state_dir permissions"}
	jobFailed          = logging.Event{Type: "job_failed", Hint: "inspect the tool output in the log file"}
	lockReleaseFailed  = logging.Event{
		Type:   "stage_lock_release_failed",
		Hint:   "remove the stale lock file under state_dir/locks",
		Impact: "the next launch of this stage may be rejected as busy",
	}
)

func (d *Dispatcher) execute(ctx context.Context, handle *Handle, lock *flock.Flock, work Work, req Request, logger *slog.Logger) {
	err := runWork(ctx, work, req)
	finishedAt := d.now()

	if d.recorder != nil {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		if recErr := d.recorder.Finish(ctx, handle.ID, finishedAt, msg); recErr != nil {
			historyWriteFailed.Warn(logger, "failed to record job completion",
				logging.Error(recErr),
				logging.String(logging.FieldImpact, "history will show the job as running"),
			)
		}
	}

	elapsed := finishedAt.Sub(handle.StartedAt)
	if err != nil {
		jobFailed.Error(logger, handle.Stage.Label()+" job failed",
			logging.Error(err),
			logging.Duration("duration", elapsed),
		)
	} else {
		logger.Info(handle.Stage.Label()+" job completed",
			logging.Duration("duration", elapsed),
			logging.String(logging.FieldEventType, "job_complete"),
		)
	}

	if lock != nil {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			lockReleaseFailed.Warn(logger, "failed to release stage lock", logging.Error(unlockErr))
		}
	}

	d.mu.Lock()
	if d.inFlight[handle.Stage] == handle {
		delete(d.inFlight, handle.Stage)
	}
	d.mu.Unlock()

	handle.finish(finishedAt, err)
}

func runWork(ctx context.Context, work Work, req Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage job panicked: %v", r)
		}
	}()
	return work(ctx, req)
}

func (d *Dispatcher) checkPreconditions(stage Stage, req Request) error {
	switch stage {
	case StagePrepare:
		if req.Reconstruction == nil {
			return services.Wrap(services.ErrPreconditionUnmet, string(stage), "launch", "no reconstruction loaded", nil)
		}
		if n := req.Reconstruction.NumRegImages(); n < MinRegisteredImages {
			return services.Wrap(services.ErrPreconditionUnmet, string(stage), "launch",
				fmt.Sprintf("reconstruction has %d registered images, need at least %d", n, MinRegisteredImages), nil)
		}
	case StageRun:
		if d.accel == nil || !d.accel.Available() {
			return services.Wrap(services.ErrPreconditionUnmet, string(stage), "launch", "no GPU available for dense stereo", nil)
		}
	}
	return nil
}

func (d *Dispatcher) acquireLock(stage Stage) (*flock.Flock, error) {
	if d.lockDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(d.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(d.lockDir, string(stage)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", stage, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrStageBusy, string(stage), "launch",
			"another mvspipe process is running this stage", nil)
	}
	return lock, nil
}

// Busy reports whether stage has a job in flight.
func (d *Dispatcher) Busy(stage Stage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight[stage] != nil
}

// InFlight returns the handles of running jobs in stage order.
func (d *Dispatcher) InFlight() []*Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	handles := make([]*Handle, 0, len(d.inFlight))
	for _, stage := range Stages {
		if h := d.inFlight[stage]; h != nil {
			handles = append(handles, h)
		}
	}
	return handles
}

// IsBusy reports whether err is a busy-stage rejection.
func IsBusy(err error) bool {
	return errors.Is(err, services.ErrStageBusy)
}
