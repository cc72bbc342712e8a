package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stagerun"
)

// ResultFileName is the final artifact name inside the job media directory.
const ResultFileName = "final.mp4"

// Handler assembles the final video during the composing stage.
type Handler struct {
	cfg      *config.Config
	logger   *slog.Logger
	composer *media.Composer
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithComposer overrides the media composer.
func WithComposer(composer *media.Composer) HandlerOption {
	return func(h *Handler) {
		if composer != nil {
			h.composer = composer
		}
	}
}

// NewHandler constructs the composing stage handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) *Handler {
	componentLogger := logging.NewComponentLogger(logger, "compose")
	handler := &Handler{
		cfg:      cfg,
		logger:   componentLogger,
		composer: media.NewComposer(cfg, media.WithLogger(componentLogger)),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare verifies the stage inputs exist on disk.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	clips, err := job.ClipPaths()
	if err != nil {
		return services.Wrap(services.ErrCompose, "compose", "validate",
			"clip list is unreadable", err)
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrCompose, "compose", "validate",
			"job has no rendered clips", nil)
	}
	for _, clip := range clips {
		if _, err := os.Stat(clip); err != nil {
			return services.Wrap(services.ErrCompose, "compose", "validate",
				fmt.Sprintf("rendered clip %s is missing", filepath.Base(clip)), err)
		}
	}
	if job.AudioPath == "" {
		return services.Wrap(services.ErrCompose, "compose", "validate",
			"job has no narration audio", nil)
	}
	if _, err := os.Stat(job.AudioPath); err != nil {
		return services.Wrap(services.ErrCompose, "compose", "validate",
			"narration audio is missing", err)
	}
	return nil
}

// Execute assembles the final artifact and records its path on the job.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	clips, err := job.ClipPaths()
	if err != nil {
		return services.Wrap(services.ErrCompose, "compose", "decode clips",
			"clip list is unreadable", err)
	}

	jobDir := h.cfg.JobDir(job.ID)
	resultPath := filepath.Join(jobDir, ResultFileName)

	policy := stagerun.Policy{
		Attempts: h.cfg.Workflow.StageRetryAttempts,
		Logger:   h.logger,
	}
	if h.cfg.Workflow.FallbackEnabled {
		policy.Fallback = func(context.Context) error {
			return media.WritePlaceholder(resultPath)
		}
	}

	result, err := stagerun.Run(ctx, policy, func(ctx context.Context) error {
		return h.assemble(ctx, job, clips, jobDir, resultPath)
	})
	if err != nil {
		return err
	}

	job.ResultPath = resultPath
	if result.FallbackUsed {
		job.Degraded = true
	}

	h.logger.Info("final video composed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("result", resultPath),
		logging.Bool("degraded", job.Degraded),
	)
	return nil
}

func (h *Handler) assemble(ctx context.Context, job *queue.Job, clips []string, jobDir, resultPath string) error {
	workDir, err := os.MkdirTemp(jobDir, "compose-*")
	if err != nil {
		return services.Wrap(services.ErrCompose, "compose", "workspace",
			"could not create compose workspace", err)
	}
	defer os.RemoveAll(workDir)

	videoTrack, err := h.buildVideoTrack(ctx, job, clips, workDir)
	if err != nil {
		return err
	}

	muxed := filepath.Join(workDir, "muxed.mp4")
	if err := h.composer.MuxAudio(ctx, videoTrack, job.AudioPath, muxed); err != nil {
		return err
	}

	return h.composer.Finalize(ctx, muxed, resultPath)
}

// buildVideoTrack produces the silent video track the narration gets muxed
// onto.
func (h *Handler) buildVideoTrack(ctx context.Context, job *queue.Job, clips []string, workDir string) (string, error) {
	if job.Options.RenderMode == queue.RenderCustomOverlay && len(clips) >= 2 {
		base, overlay := clips[0], clips[1]
		baseDuration, err := h.composer.Duration(ctx, base)
		if err != nil {
			return "", err
		}
		overlayDuration, err := h.composer.Duration(ctx, overlay)
		if err != nil {
			return "", err
		}
		// The presenter clip must cover the whole base recording or the
		// overlay freezes on its last frame partway through.
		if overlayDuration > 0 && overlayDuration < baseDuration-1 {
			extended := filepath.Join(workDir, "overlay_extended.mp4")
			if err := h.composer.LoopToDuration(ctx, overlay, extended, baseDuration); err != nil {
				return "", err
			}
			overlay = extended
		}
		combined := filepath.Join(workDir, "overlaid.mp4")
		if err := h.composer.OverlayCircular(ctx, base, overlay, combined); err != nil {
			return "", err
		}
		return combined, nil
	}

	track := clips[0]
	if len(clips) > 1 {
		joined := filepath.Join(workDir, "joined.mp4")
		if err := h.composer.Concatenate(ctx, clips, joined); err != nil {
			return "", err
		}
		track = joined
	}

	// The narration length drives the final duration. A materially shorter
	// video track gets looped so the audio never plays over a frozen frame.
	audioDuration, err := h.composer.Duration(ctx, job.AudioPath)
	if err != nil {
		return "", err
	}
	videoDuration, err := h.composer.Duration(ctx, track)
	if err != nil {
		return "", err
	}
	if videoDuration > 0 && audioDuration > videoDuration+1 {
		looped := filepath.Join(workDir, "looped.mp4")
		if err := h.composer.LoopToDuration(ctx, track, looped, audioDuration); err != nil {
			return "", err
		}
		track = looped
	}
	return track, nil
}

// HealthCheck reports readiness of the composing stage.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if _, err := exec.LookPath(h.cfg.FFmpegBinary()); err != nil {
		return stage.Unhealthy("compose", fmt.Sprintf("ffmpeg binary %q not found", h.cfg.FFmpegBinary()))
	}
	if _, err := exec.LookPath(h.cfg.FFprobeBinary()); err != nil {
		return stage.Unhealthy("compose", fmt.Sprintf("ffprobe binary %q not found", h.cfg.FFprobeBinary()))
	}
	return stage.Healthy("compose")
}

var _ stage.Handler = (*Handler)(nil)
