package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or in-flight job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			immediate, err := client.Cancel(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if immediate {
				fmt.Fprintln(cmd.OutOrStdout(), "Job cancelled")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested; the job will stop at the next stage boundary")
			}
			return nil
		},
	}
}
