package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/api"
)

type submitFlags struct {
	duration     int
	avatarStyle  string
	voiceStyle   string
	mode         string
	language     string
	style        string
	instructions string
	image        string
	scriptFile   string
}

func (f *submitFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.duration, "duration", 0, "Target video length in minutes (5, 10, or 15)")
	cmd.Flags().StringVar(&f.avatarStyle, "avatar-style", "", "Avatar style (professional_male, professional_female, energetic_male, energetic_female)")
	cmd.Flags().StringVar(&f.voiceStyle, "voice-style", "", "Voice style (professional, energetic, calm; _male/_female suffix)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Render mode (avatar, screen_recording, custom_avatar_overlay)")
	cmd.Flags().StringVar(&f.language, "language", "", "Script language tag (defaults to tr)")
	cmd.Flags().StringVar(&f.style, "style", "", "Script style (tutorial, review, quick_start)")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "Extra instructions for the script writer")
	cmd.Flags().StringVar(&f.image, "image", "", "Custom presenter image URL for overlay mode")
	cmd.Flags().StringVar(&f.scriptFile, "script-file", "", "Use this script file instead of generating one")
}

func (f *submitFlags) options() api.JobOptions {
	return api.JobOptions{
		DurationMinutes: f.duration,
		AvatarStyle:     f.avatarStyle,
		VoiceStyle:      f.voiceStyle,
		RenderMode:      f.mode,
		Language:        f.language,
		Style:           f.style,
		Instructions:    f.instructions,
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	flags := &submitFlags{}

	cmd := &cobra.Command{
		Use:   "submit <source>",
		Short: "Queue a video generation job for a repository, website, or document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			base := api.SubmitRequest{
				SourceRef:   strings.TrimSpace(args[0]),
				CustomImage: flags.image,
				Options:     flags.options(),
			}

			var job *api.Job
			if flags.scriptFile != "" {
				script, err := os.ReadFile(flags.scriptFile)
				if err != nil {
					return fmt.Errorf("read script file: %w", err)
				}
				job, err = client.SubmitWithScript(cmd.Context(), api.SubmitWithScriptRequest{
					SubmitRequest: base,
					Script:        string(script),
				})
				if err != nil {
					return err
				}
			} else {
				job, err = client.Submit(cmd.Context(), base)
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (%s)\n", job.ID, job.SourceKind)
			fmt.Fprintf(cmd.OutOrStdout(), "Track it with: reelsmith show %s\n", job.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
