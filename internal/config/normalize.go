package config

import (
	"fmt"
	"os"
	"strings"

	"mvspipe/internal/patchmatch"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeColmap()
	c.normalizeAccelerator()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("MVSPIPE_WORKSPACE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Workspace = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}

	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.Workspace, err = expandPath(strings.TrimSpace(c.Paths.Workspace)); err != nil {
		return fmt.Errorf("paths.workspace: %w", err)
	}
	if c.Paths.ImagePath, err = expandPath(strings.TrimSpace(c.Paths.ImagePath)); err != nil {
		return fmt.Errorf("paths.image_path: %w", err)
	}
	if c.Paths.ProjectPath, err = expandPath(strings.TrimSpace(c.Paths.ProjectPath)); err != nil {
		return fmt.Errorf("paths.project_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeColmap() {
	if value, ok := os.LookupEnv("MVSPIPE_COLMAP_BINARY"); ok && strings.TrimSpace(value) != "" {
		c.Colmap.Binary = value
	}
	c.Colmap.Binary = strings.TrimSpace(c.Colmap.Binary)
	if c.Colmap.Binary == "" {
		c.Colmap.Binary = defaultColmapBinary
	}
	if c.Colmap.MaxImageSize == 0 {
		c.Colmap.MaxImageSize = patchmatch.DefaultMaxImageSize
	}
}

func (c *Config) normalizeAccelerator() {
	c.Accelerator.QueryBinary = strings.TrimSpace(c.Accelerator.QueryBinary)
	c.Accelerator.Force = strings.ToLower(strings.TrimSpace(c.Accelerator.Force))
	if c.Accelerator.Force == "" {
		c.Accelerator.Force = AcceleratorAuto
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
