package config

import "mvspipe/internal/patchmatch"

const (
	defaultStateDir         = "~/.local/share/mvspipe"
	defaultLogDir           = "~/.local/share/mvspipe/logs"
	defaultColmapBinary     = "colmap"
	defaultUndistortTimeout = 0
	defaultStereoTimeout    = 0
	defaultQueryBinary      = "nvidia-smi"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

const (
	AcceleratorAuto     = "auto"
	AcceleratorEnabled  = "enabled"
	AcceleratorDisabled = "disabled"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Colmap: Colmap{
			Binary:           defaultColmapBinary,
			UndistortTimeout: defaultUndistortTimeout,
			StereoTimeout:    defaultStereoTimeout,
			MaxImageSize:     patchmatch.DefaultMaxImageSize,
		},
		Accelerator: Accelerator{
			QueryBinary: defaultQueryBinary,
			Force:       AcceleratorAuto,
		},
		PatchMatch: patchmatch.DefaultOptions(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
