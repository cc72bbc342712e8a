package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show details for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.Describe(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range buildShowLines(job, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func buildShowLines(job *api.Job, colorize bool) []string {
	lines := []string{
		renderStatusLine("Source", statusInfo, fmt.Sprintf("%s (%s)", job.SourceRef, job.SourceKind), colorize),
		renderStatusLine("Status", statusKindForJob(job), job.Status, colorize),
		renderStatusLine("Progress", statusInfo, fmt.Sprintf("%.0f%% %s", job.Progress.Percent, job.Progress.Message), colorize),
	}

	opts := job.Options
	lines = append(lines, renderStatusLine("Options", statusInfo,
		fmt.Sprintf("%dmin %s %s %s %s", opts.DurationMinutes, opts.RenderMode, opts.AvatarStyle, opts.VoiceStyle, opts.Language),
		colorize))

	if job.Degraded {
		lines = append(lines, renderStatusLine("Degraded", statusWarn,
			"one or more stages fell back to placeholder output", colorize))
	}
	if job.Truncated {
		lines = append(lines, renderStatusLine("Truncated", statusWarn,
			"source or script content was shortened to fit vendor limits", colorize))
	}
	if job.ScriptApproved {
		lines = append(lines, renderStatusLine("Script", statusInfo, "user-approved script", colorize))
	}
	if job.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
	}
	if job.ResultPath != "" {
		lines = append(lines, renderStatusLine("Result", statusOK, job.ResultPath, colorize))
	}
	if created := api.ParseJobTime(job.CreatedAt); !created.IsZero() {
		lines = append(lines, renderStatusLine("Created", statusInfo,
			created.Local().Format("2006-01-02 15:04:05"), colorize))
	}
	return lines
}

func statusKindForJob(job *api.Job) statusKind {
	switch job.Status {
	case "completed":
		if job.Degraded {
			return statusWarn
		}
		return statusOK
	case "failed":
		return statusError
	default:
		return statusInfo
	}
}
