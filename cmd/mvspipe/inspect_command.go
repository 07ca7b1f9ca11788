package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/workflow"
)

// Depth maps are clipped to these percentiles for display.
const (
	depthMinPercentile = 2
	depthMaxPercentile = 98
)

type inspectJSON struct {
	Item     string   `json:"item"`
	Mode     string   `json:"mode"`
	Kind     string   `json:"kind"`
	Path     string   `json:"path"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Channels int      `json:"channels"`
	Min      *float32 `json:"min,omitempty"`
	Max      *float32 `json:"max,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var kindFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect <item>",
		Short: "Decode a depth or normal map for one reference image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := artifacts.Mode(strings.ToLower(strings.TrimSpace(modeFlag)))
			if mode != artifacts.ModePhotometric && mode != artifacts.ModeGeometric {
				return fmt.Errorf("--mode must be photometric or geometric")
			}
			kind := artifacts.Kind(strings.ToLower(strings.TrimSpace(kindFlag)))
			if kind != artifacts.KindDepth && kind != artifacts.KindNormal {
				return fmt.Errorf("--kind must be depth or normal")
			}

			path, err := ctx.workspacePath()
			if err != nil {
				return err
			}
			orch := workflow.New(nil, ctx.log())
			if err := orch.SetWorkspace(path); err != nil {
				return err
			}
			if err := orch.Snapshot().Err(); err != nil {
				return err
			}
			if !orch.Readiness().RunEnabled {
				return fmt.Errorf("workspace %s is not ready (state %s)", path, orch.State())
			}
			row, ok := orch.Grid().Find(args[0])
			if !ok {
				return fmt.Errorf("%q is not a reference image in %s", args[0], path)
			}
			artifact := row.Artifact(mode, kind)
			if !artifact.Exists {
				return fmt.Errorf("no %s %s map for %s", mode, kind, row.Item)
			}

			m, err := artifacts.ReadMap(artifact.Path)
			if err != nil {
				return err
			}
			view := inspectJSON{
				Item:     row.Item,
				Mode:     string(mode),
				Kind:     string(kind),
				Path:     artifact.Path,
				Width:    m.Width,
				Height:   m.Height,
				Channels: m.Channels,
			}
			if kind == artifacts.KindDepth {
				if lo, hi, ok := m.Range(depthMinPercentile, depthMaxPercentile); ok {
					view.Min, view.Max = &lo, &hi
				}
			}
			if jsonOutput {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s %s)\n", view.Item, view.Mode, view.Kind)
			fmt.Fprintf(out, "  Path:       %s\n", view.Path)
			fmt.Fprintf(out, "  Size:       %dx%d, %d channel(s)\n", view.Width, view.Height, view.Channels)
			if view.Min != nil {
				fmt.Fprintf(out, "  Depth range: %g - %g (p%d-p%d)\n", *view.Min, *view.Max, depthMinPercentile, depthMaxPercentile)
			} else if kind == artifacts.KindDepth {
				fmt.Fprintln(out, "  Depth range: no valid depths")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modeFlag, "mode", string(artifacts.ModePhotometric), "Processing mode: photometric or geometric")
	cmd.Flags().StringVar(&kindFlag, "kind", string(artifacts.KindDepth), "Map kind: depth or normal")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
