package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderDaemonStatus(status, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func renderDaemonStatus(status *api.DaemonStatus, colorize bool) []string {
	var lines []string

	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	runningKind := statusError
	runningMsg := "stopped"
	if status.Running {
		runningKind = statusOK
		runningMsg = fmt.Sprintf("pid %d", status.PID)
	}
	lines = append(lines,
		renderStatusLine("Running", runningKind, runningMsg, colorize),
		renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize),
	)
	if status.Workflow.LastError != "" {
		lines = append(lines, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Pipeline", colorize)...)
	for _, health := range status.Workflow.StageHealth {
		kind := statusOK
		message := "ready"
		if !health.Ready {
			kind = statusWarn
			message = health.Detail
		}
		lines = append(lines, renderStatusLine(health.Name, kind, message, colorize))
	}
	if len(status.Workflow.QueueStats) > 0 {
		keys := make([]string, 0, len(status.Workflow.QueueStats))
		for key := range status.Workflow.QueueStats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			lines = append(lines, renderStatusLine(key, statusInfo,
				fmt.Sprintf("%d", status.Workflow.QueueStats[key]), colorize))
		}
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
	for _, dep := range status.Dependencies {
		kind := statusOK
		message := dep.Command
		if !dep.Available {
			message = dep.Detail
			if dep.Optional {
				kind = statusWarn
			} else {
				kind = statusError
			}
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, message, colorize))
	}
	return lines
}
