package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List queued and processed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.List(cmd.Context(), statuses)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]tableColumn{
					{header: "ID"},
					{header: "Source"},
					{header: "Status"},
					{header: "Progress", alignRight: true},
					{header: "Created"},
				},
				buildJobRows(jobs),
			))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.AddCommand(newJobsClearCommand(ctx))
	return cmd
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var onlyCompleted bool
	var onlyFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if onlyCompleted && onlyFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			scope := ""
			switch {
			case onlyCompleted:
				scope = "completed"
			case onlyFailed:
				scope = "failed"
			}
			removed, err := client.Clear(cmd.Context(), scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d jobs\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyCompleted, "completed", false, "Remove only completed jobs")
	cmd.Flags().BoolVar(&onlyFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func buildJobRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		progress := fmt.Sprintf("%.0f%%", job.Progress.Percent)
		if job.Status == "failed" {
			progress = "-"
		}
		created := ""
		if t := api.ParseJobTime(job.CreatedAt); !t.IsZero() {
			created = t.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			job.ID,
			truncateCell(job.SourceRef, 40),
			decorateStatus(job),
			progress,
			created,
		})
	}
	return rows
}

func decorateStatus(job api.Job) string {
	status := job.Status
	var marks []string
	if job.Degraded {
		marks = append(marks, "degraded")
	}
	if job.Truncated {
		marks = append(marks, "truncated")
	}
	if len(marks) > 0 {
		status += " (" + strings.Join(marks, ", ") + ")"
	}
	return status
}

func truncateCell(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
