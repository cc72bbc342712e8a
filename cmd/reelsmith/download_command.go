package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
	"reelsmith/internal/textutil"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "download <job-id>",
		Short: "Download the finished video for a completed job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			dest := outputFile
			if dest == "" {
				job, err := client.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				dest = defaultDownloadName(job)
			}
			if err := client.Download(cmd.Context(), id, dest); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Destination file (defaults to a name derived from the source)")
	return cmd
}

// defaultDownloadName derives a filename from the job's source reference so a
// bare download does not leave opaque UUID filenames in the working directory.
func defaultDownloadName(job *api.Job) string {
	ref := job.SourceRef
	if idx := strings.Index(ref, "://"); idx >= 0 {
		ref = ref[idx+3:]
	}
	if slug := textutil.Slug(ref); slug != "" {
		const maxSlug = 60
		if len(slug) > maxSlug {
			slug = strings.Trim(slug[:maxSlug], "-")
		}
		return slug + ".mp4"
	}
	return job.ID + ".mp4"
}
