package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mvspipe/internal/config"
	"mvspipe/internal/jobs"
	"mvspipe/internal/reconstruction"
	"mvspipe/internal/services"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var sparsePath string
	var imagePath string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Undistort a sparse reconstruction into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			model, err := config.ExpandPath(strings.TrimSpace(sparsePath))
			if err != nil {
				return fmt.Errorf("resolve sparse model path: %w", err)
			}
			images := cfg.Paths.ImagePath
			if strings.TrimSpace(imagePath) != "" {
				if images, err = config.ExpandPath(strings.TrimSpace(imagePath)); err != nil {
					return fmt.Errorf("resolve image path: %w", err)
				}
			}
			recon, err := reconstruction.Load(model, images)
			if err != nil {
				return fmt.Errorf("load reconstruction: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded reconstruction with %d registered images\n", recon.NumRegImages())

			return runStage(cmd, ctx, jobs.StagePrepare, func(s *session, c context.Context) (*jobs.Handle, error) {
				return s.orch.RequestPrepare(c, recon)
			})
		},
	}
	cmd.Flags().StringVar(&sparsePath, "sparse", "", "Sparse model directory (cameras/images/points3D)")
	cmd.Flags().StringVar(&imagePath, "image-path", "", "Source image directory (defaults to paths.image_path)")
	_ = cmd.MarkFlagRequired("sparse")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var maxImageSize int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run dense patch-match stereo over the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxImageSize < -1 {
				return fmt.Errorf("--max-image-size must be -1 (unlimited) or positive")
			}
			return runStage(cmd, ctx, jobs.StageRun, func(s *session, c context.Context) (*jobs.Handle, error) {
				return s.orch.RequestRun(c, maxImageSize)
			})
		},
	}
	cmd.Flags().IntVar(&maxImageSize, "max-image-size", 0, "Maximum image size for stereo; 0 uses colmap.max_image_size, -1 disables the limit")
	return cmd
}

// runStage launches one stage job, waits for it and the rebuild that follows,
// then prints the refreshed workspace status.
func runStage(cmd *cobra.Command, ctx *commandContext, stage jobs.Stage, launch func(*session, context.Context) (*jobs.Handle, error)) error {
	path, err := ctx.workspacePath()
	if err != nil {
		return err
	}
	sess, err := ctx.openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.orch.SetWorkspace(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	handle, err := launch(sess, cmd.Context())
	if err != nil {
		if jobs.IsBusy(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "A %s job is already in flight; wait for it to finish.\n", stage)
		}
		return fmt.Errorf("%s rejected: %w", stage.Label(), err)
	}
	fmt.Fprintf(out, "%s job %s started in %s\n", stage.Label(), handle.ID, handle.Workspace)

	sess.orch.Wait()
	jobErr := handle.Err()
	reportJob(out, handle, jobErr)

	fmt.Fprintln(out)
	renderSnapshot(out, sess.orch.Snapshot(), shouldColorize(out))

	if rebuildErr := sess.orch.LastError(); rebuildErr != nil {
		return fmt.Errorf("rebuild after %s: %w", stage, rebuildErr)
	}
	if jobErr != nil {
		return fmt.Errorf("%s job failed: %w", stage, jobErr)
	}
	return nil
}

func reportJob(out io.Writer, handle *jobs.Handle, err error) {
	elapsed := handle.FinishedAt().Sub(handle.StartedAt).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(out, "%s job %s failed after %s: %s\n", handle.Stage.Label(), handle.ID, elapsed, services.UserMessage(err))
		return
	}
	fmt.Fprintf(out, "%s job %s finished in %s\n", handle.Stage.Label(), handle.ID, elapsed)
}
