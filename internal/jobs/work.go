package jobs

import (
	"context"
	"log/slog"

	"mvspipe/internal/config"
	"mvspipe/internal/stages"
)

// ColmapWork builds the prepare and run bodies backed by the COLMAP binary
// named in cfg. Extra stage options (an executor stub, for example) apply to
// both runners.
func ColmapWork(cfg *config.Config, logger *slog.Logger, extra ...stages.Option) ([]Option, error) {
	opts := append([]stages.Option{stages.WithLogger(logger)}, extra...)
	undistorter, err := stages.NewUndistorter(cfg.Colmap.Binary, cfg.Colmap.UndistortTimeout, opts...)
	if err != nil {
		return nil, err
	}
	matcher, err := stages.NewStereoMatcher(cfg.Colmap.Binary, cfg.Colmap.StereoTimeout, opts...)
	if err != nil {
		return nil, err
	}
	patchMatch := cfg.PatchMatch
	defaultMaxSize := cfg.Colmap.MaxImageSize

	prepare := func(ctx context.Context, req Request) error {
		imagePath := req.ImagePath
		if imagePath == "" {
			imagePath = cfg.Paths.ImagePath
		}
		return undistorter.Undistort(ctx, stages.UndistortRequest{
			ModelPath: req.ModelPath,
			ImagePath: imagePath,
			Workspace: req.Workspace,
		})
	}
	run := func(ctx context.Context, req Request) error {
		maxSize := req.MaxImageSize
		if maxSize == 0 {
			maxSize = defaultMaxSize
		}
		return matcher.Match(ctx, stages.StereoRequest{
			Workspace:    req.Workspace,
			MaxImageSize: maxSize,
			Options:      patchMatch,
		})
	}
	return []Option{WithWork(StagePrepare, prepare), WithWork(StageRun, run)}, nil
}
