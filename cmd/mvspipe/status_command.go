package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mvspipe/internal/services"
	"mvspipe/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace readiness and the artifact grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.workspacePath()
			if err != nil {
				return err
			}
			orch := workflow.New(nil, ctx.log())
			if err := orch.SetWorkspace(path); err != nil {
				return err
			}
			snap := orch.Snapshot()
			if jsonOutput {
				return writeJSON(cmd, statusView(snap))
			}
			renderSnapshot(cmd.OutOrStdout(), snap, shouldColorize(cmd.OutOrStdout()))
			if problem := snap.Err(); problem != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n%s\n", services.UserMessage(problem))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type statusJSON struct {
	workflow.Snapshot
	State   string `json:"state"`
	Problem string `json:"problem,omitempty"`
}

func statusView(snap workflow.Snapshot) statusJSON {
	return statusJSON{Snapshot: snap, State: string(snap.State()), Problem: services.UserMessage(snap.Err())}
}
