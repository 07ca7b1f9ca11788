package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateColmap(); err != nil {
		return err
	}
	if err := c.validateAccelerator(); err != nil {
		return err
	}
	if err := c.PatchMatch.Validate(); err != nil {
		return fmt.Errorf("patch_match: %w", err)
	}
	return c.validateLogging()
}

func (c *Config) validateColmap() error {
	if c.Colmap.UndistortTimeout < 0 {
		return errors.New("colmap.undistort_timeout must be >= 0")
	}
	if c.Colmap.StereoTimeout < 0 {
		return errors.New("colmap.stereo_timeout must be >= 0")
	}
	if c.Colmap.MaxImageSize < 0 {
		return errors.New("colmap.max_image_size must be >= 0")
	}
	return nil
}

func (c *Config) validateAccelerator() error {
	switch c.Accelerator.Force {
	case AcceleratorAuto, AcceleratorEnabled, AcceleratorDisabled:
	default:
		return fmt.Errorf("accelerator.force: unsupported value %q (want auto, enabled, or disabled)", c.Accelerator.Force)
	}
	if c.Accelerator.Force == AcceleratorAuto && c.Accelerator.QueryBinary == "" {
		return errors.New("accelerator.query_binary must be set when accelerator.force is auto")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
