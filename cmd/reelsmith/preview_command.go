package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	flags := &submitFlags{}
	var outputFile string

	cmd := &cobra.Command{
		Use:   "preview <source>",
		Short: "Generate and print a script without queueing a job",
		Long: "Generates the narration script for a source and prints it so it can be " +
			"edited and resubmitted with 'reelsmith submit --script-file'.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			preview, err := client.Preview(cmd.Context(), api.PreviewRequest{
				SourceRef: strings.TrimSpace(args[0]),
				Options:   flags.options(),
			})
			if err != nil {
				return err
			}

			if outputFile != "" {
				if err := os.WriteFile(outputFile, []byte(preview.Script), 0o644); err != nil {
					return fmt.Errorf("write script file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d-word script to %s\n", preview.WordCount, outputFile)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), preview.Script)
			}
			if preview.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: script generation was unavailable; this is a placeholder script")
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the script to a file instead of stdout")
	return cmd
}
