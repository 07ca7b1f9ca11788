package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mvspipe/internal/history"
	"mvspipe/internal/jobs"
	"mvspipe/internal/logging"
)

type runJSON struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	Workspace  string     `json:"workspace"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var stageFlag string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent stage jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var stage jobs.Stage
			if strings.TrimSpace(stageFlag) != "" {
				if stage, err = jobs.ParseStage(stageFlag); err != nil {
					return err
				}
			}
			runs, err := store.ListStage(cmd.Context(), string(stage), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				views := make([]runJSON, 0, len(runs))
				for _, run := range runs {
					views = append(views, runJSON{
						ID:         run.ID,
						Stage:      run.Stage,
						Workspace:  run.Workspace,
						Status:     string(run.Status()),
						StartedAt:  run.StartedAt,
						FinishedAt: run.FinishedAt,
						Error:      run.Error,
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistory(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list (0 for all)")
	cmd.Flags().StringVar(&stageFlag, "stage", "", "Only list jobs for this stage (prepare or run)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderHistory(runs []history.Run) string {
	columns := []column{
		{header: "Job"},
		{header: "Stage"},
		{header: "Started"},
		{header: "Duration", numeric: true},
		{header: "Status"},
		{header: "Workspace"},
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.Duration().Round(time.Second).String()
		}
		status := string(run.Status())
		if run.Error != "" {
			status += ": " + truncate(run.Error, 40)
		}
		rows = append(rows, []string{
			logging.ShortJobID(run.ID),
			run.Stage,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			status,
			run.Workspace,
		})
	}
	return renderTable(columns, rows, nil)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
