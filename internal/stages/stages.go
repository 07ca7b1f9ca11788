package stages

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"mvspipe/internal/logging"
	"mvspipe/internal/patchmatch"
	"mvspipe/internal/services"
)

// Option configures a stage runner.
type Option func(*runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger routes tool output to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type runner struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

func newRunner(binary string, timeoutSeconds int, opts []Option) (runner, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return runner{}, errors.New("colmap binary required")
	}
	r := runner{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r, nil
}

func (r runner) run(ctx context.Context, stage, operation string, args []string) error {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("stage tool started",
		logging.String(logging.FieldEventType, "tool_start"),
		logging.String("binary", r.binary),
		logging.String("operation", operation),
	)
	start := time.Now()
	err := r.exec.Run(runCtx, r.binary, args, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			logger.Debug("tool output", logging.String("line", line))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stage, operation, "stage tool failed", err)
	}
	logger.Info("stage tool finished",
		logging.String(logging.FieldEventType, "tool_complete"),
		logging.String("operation", operation),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// UndistortRequest describes one prepare run.
type UndistortRequest struct {
	ModelPath string
	ImagePath string
	Workspace string
}

// Undistorter runs image undistortion, populating images/, sparse/, and the
// dense/ skeleton of a workspace.
type Undistorter struct {
	runner
}

// NewUndistorter constructs the prepare stage runner.
func NewUndistorter(binary string, timeoutSeconds int, opts ...Option) (*Undistorter, error) {
	r, err := newRunner(binary, timeoutSeconds, opts)
	if err != nil {
		return nil, err
	}
	return &Undistorter{runner: r}, nil
}

// Undistort executes the undistortion tool.
func (u *Undistorter) Undistort(ctx context.Context, req UndistortRequest) error {
	if strings.TrimSpace(req.ModelPath) == "" || strings.TrimSpace(req.Workspace) == "" {
		return services.Wrap(services.ErrValidation, "prepare", "undistort", "model and workspace paths are required", nil)
	}
	args := []string{
		"image_undistorter",
		"--input_path", req.ModelPath,
		"--output_path", req.Workspace,
		"--output_type", "COLMAP",
	}
	if strings.TrimSpace(req.ImagePath) != "" {
		args = append(args, "--image_path", req.ImagePath)
	}
	return u.run(ctx, "prepare", "image_undistorter", args)
}

// StereoRequest describes one dense stereo run.
type StereoRequest struct {
	Workspace    string
	MaxImageSize int
	Options      patchmatch.Options
}

// StereoMatcher runs patch-match stereo, populating the depth, normal, and
// consistency graph directories.
type StereoMatcher struct {
	runner
}

// NewStereoMatcher constructs the run stage runner.
func NewStereoMatcher(binary string, timeoutSeconds int, opts ...Option) (*StereoMatcher, error) {
	r, err := newRunner(binary, timeoutSeconds, opts)
	if err != nil {
		return nil, err
	}
	return &StereoMatcher{runner: r}, nil
}

// Match executes the dense stereo tool.
func (s *StereoMatcher) Match(ctx context.Context, req StereoRequest) error {
	if strings.TrimSpace(req.Workspace) == "" {
		return services.Wrap(services.ErrValidation, "run", "patch_match_stereo", "workspace path is required", nil)
	}
	args := []string{
		"patch_match_stereo",
		"--workspace_path", req.Workspace,
		"--workspace_format", "COLMAP",
	}
	if req.MaxImageSize > 0 {
		args = append(args, "--PatchMatchStereo.max_image_size", strconv.Itoa(req.MaxImageSize))
	}
	args = append(args, req.Options.Args()...)
	return s.run(ctx, "run", "patch_match_stereo", args)
}
