package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mvspipe/internal/config"
	"mvspipe/internal/deps"
	"mvspipe/internal/history"
	"mvspipe/internal/jobs"
	"mvspipe/internal/logging"
	"mvspipe/internal/workflow"
)

type commandContext struct {
	configFlag    *string
	workspaceFlag *string
	verbose       *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag, workspaceFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		workspaceFlag: workspaceFlag,
		verbose:       verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// workspacePath resolves --workspace, then the configured default workspace.
func (c *commandContext) workspacePath() (string, error) {
	if c.workspaceFlag != nil {
		if flag := strings.TrimSpace(*c.workspaceFlag); flag != "" {
			return config.ExpandPath(flag)
		}
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if ws := cfg.DefaultWorkspace(); ws != "" {
		return ws, nil
	}
	return "", errors.New("no workspace selected; pass --workspace or set paths.workspace")
}

// log returns the command logger. It writes to the log file, and to stdout
// as well with --verbose.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		var logger *slog.Logger
		if c.verbose != nil && *c.verbose {
			logger, err = logging.NewFromConfig(cfg)
		} else {
			logger, err = logging.New(logging.Options{
				Level:            cfg.Logging.Level,
				Format:           cfg.Logging.Format,
				OutputPaths:      []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
				ErrorOutputPaths: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
			})
		}
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// session bundles an orchestrator wired to the real dispatcher with the
// resources it holds open.
type session struct {
	orch    *workflow.Orchestrator
	history *history.Store
}

func (s *session) Close() error {
	if s == nil || s.history == nil {
		return nil
	}
	return s.history.Close()
}

func (c *commandContext) openSession() (*session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger := c.log()

	store, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	opts, err := jobs.ColmapWork(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	opts = append(opts,
		jobs.WithAccelerator(deps.NewAccelerator(cfg.Accelerator.Force, cfg.Accelerator.QueryBinary)),
		jobs.WithLockDir(cfg.LockDir()),
		jobs.WithRecorder(store),
		jobs.WithLogger(logger),
	)
	orch := workflow.New(jobs.NewDispatcher(opts...), logger)
	return &session{orch: orch, history: store}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
