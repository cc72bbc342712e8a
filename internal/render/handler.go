package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/analyze"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media"
	"reelsmith/internal/queue"
	"reelsmith/internal/scriptgen"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stagerun"
	"reelsmith/internal/textutil"
)

// Handler produces the visual clips during the rendering stage.
type Handler struct {
	cfg      *config.Config
	logger   *slog.Logger
	avatar   Renderer
	overlay  Renderer
	recorder *Recorder
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithAvatarRenderer overrides the primary avatar renderer.
func WithAvatarRenderer(renderer Renderer) HandlerOption {
	return func(h *Handler) {
		if renderer != nil {
			h.avatar = renderer
		}
	}
}

// WithOverlayRenderer overrides the renderer used for custom presenter
// overlays.
func WithOverlayRenderer(renderer Renderer) HandlerOption {
	return func(h *Handler) {
		if renderer != nil {
			h.overlay = renderer
		}
	}
}

// WithRecorder overrides the screen recorder.
func WithRecorder(recorder *Recorder) HandlerOption {
	return func(h *Handler) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// NewHandler constructs the rendering stage handler. The configured provider
// renders plain avatar clips; custom presenter overlays always go through
// D-ID because HeyGen cannot animate arbitrary images.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) *Handler {
	var primary Renderer
	switch cfg.Avatar.Provider {
	case "did":
		primary = NewDID(cfg.Avatar, nil)
	default:
		primary = NewHeyGen(cfg.Avatar, nil)
	}

	handler := &Handler{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "render"),
		avatar:   primary,
		overlay:  NewDID(cfg.Avatar, nil),
		recorder: NewRecorder(cfg),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare validates stage inputs for the job's render mode.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.ScriptText) == "" {
		return services.Wrap(services.ErrRender, "render", "validate",
			"job has no script to render", nil)
	}
	if err := os.MkdirAll(h.cfg.JobDir(job.ID), 0o755); err != nil {
		return services.Wrap(services.ErrRender, "render", "prepare",
			"could not create job media directory", err)
	}

	switch job.Options.RenderMode {
	case queue.RenderScreenRecord, queue.RenderCustomOverlay:
		if h.recordURL(job) == "" {
			return services.Wrap(services.ErrInvalidSource, "render", "validate",
				"screen recording needs a website or repository URL", nil)
		}
	}
	if job.Options.RenderMode == queue.RenderCustomOverlay && strings.TrimSpace(job.CustomImage) == "" {
		return services.Wrap(services.ErrInvalidSource, "render", "validate",
			"custom avatar overlay needs a presenter image", nil)
	}
	return nil
}

// Execute renders the clips for the job's render mode and records their
// paths on the job.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	var (
		clips []string
		err   error
	)
	switch job.Options.RenderMode {
	case queue.RenderScreenRecord:
		clips, err = h.renderScreen(ctx, job)
	case queue.RenderCustomOverlay:
		clips, err = h.renderOverlay(ctx, job)
	default:
		clips, err = h.renderAvatar(ctx, job)
	}
	if err != nil {
		return err
	}

	if err := job.SetClipPaths(clips); err != nil {
		return services.Wrap(services.ErrRender, "render", "persist clips",
			"could not record clip paths", err)
	}

	h.logger.Info("clips rendered",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("mode", string(job.Options.RenderMode)),
		logging.Int("clips", len(clips)),
		logging.Bool("degraded", job.Degraded),
	)
	return nil
}

// clipTexts splits the script for per-clip rendering and applies the vendor
// character ceiling.
func (h *Handler) clipTexts(job *queue.Job) ([]string, bool) {
	var texts []string
	if h.cfg.Avatar.Chunking {
		for _, section := range scriptgen.ParseSections(job.ScriptText) {
			texts = append(texts, section.Text)
		}
	}
	if len(texts) == 0 {
		texts = []string{scriptgen.PlainText(job.ScriptText)}
	}

	truncatedAny := false
	limit := h.cfg.Avatar.MaxClipChars
	for i, text := range texts {
		bounded, truncated := textutil.TruncateAtBoundary(text, limit)
		if truncated {
			truncatedAny = true
		}
		texts[i] = bounded
	}
	return texts, truncatedAny
}

func (h *Handler) renderAvatar(ctx context.Context, job *queue.Job) ([]string, error) {
	texts, truncated := h.clipTexts(job)
	if truncated {
		job.Truncated = true
	}

	jobDir := h.cfg.JobDir(job.ID)
	clips := make([]string, len(texts))
	for i := range texts {
		clips[i] = filepath.Join(jobDir, fmt.Sprintf("clip_%02d.mp4", i))
	}

	result, err := stagerun.Run(ctx, h.policy(func(context.Context) error {
		return writePlaceholders(clips)
	}), func(ctx context.Context) error {
		for i, text := range texts {
			req := ClipRequest{
				Text:        text,
				AvatarStyle: job.Options.AvatarStyle,
				VoiceStyle:  job.Options.VoiceStyle,
				Language:    job.Options.Language,
			}
			if err := h.avatar.RenderClip(ctx, req, clips[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.FallbackUsed {
		job.Degraded = true
	}
	return clips, nil
}

func (h *Handler) renderScreen(ctx context.Context, job *queue.Job) ([]string, error) {
	output := filepath.Join(h.cfg.JobDir(job.ID), "screen.mp4")
	seconds := job.Options.DurationMinutes * 60

	result, err := stagerun.Run(ctx, h.policy(func(context.Context) error {
		return writePlaceholders([]string{output})
	}), func(ctx context.Context) error {
		if !h.recorder.Available() {
			return services.Wrap(services.ErrConfiguration, "render", "record",
				fmt.Sprintf("screen recorder %q is not installed", h.recorder.binary), nil)
		}
		return h.recorder.Record(ctx, h.recordURL(job), seconds, output)
	})
	if err != nil {
		return nil, err
	}
	if result.FallbackUsed {
		job.Degraded = true
	}
	return []string{output}, nil
}

// renderOverlay captures the screen recording and one presenter clip. The
// compose stage masks the presenter circularly and pins it to the corner, so
// the clip order here is part of the contract: base first, overlay second.
func (h *Handler) renderOverlay(ctx context.Context, job *queue.Job) ([]string, error) {
	screenClips, err := h.renderScreen(ctx, job)
	if err != nil {
		return nil, err
	}

	overlayPath := filepath.Join(h.cfg.JobDir(job.ID), "presenter.mp4")
	text, truncated := textutil.TruncateAtBoundary(scriptgen.PlainText(job.ScriptText), h.cfg.Avatar.MaxClipChars)
	if truncated {
		job.Truncated = true
	}

	result, err := stagerun.Run(ctx, h.policy(func(context.Context) error {
		return writePlaceholders([]string{overlayPath})
	}), func(ctx context.Context) error {
		req := ClipRequest{
			Text:        text,
			AvatarStyle: job.Options.AvatarStyle,
			VoiceStyle:  job.Options.VoiceStyle,
			ImageURL:    job.CustomImage,
			Language:    job.Options.Language,
		}
		return h.overlay.RenderClip(ctx, req, overlayPath)
	})
	if err != nil {
		return nil, err
	}
	if result.FallbackUsed {
		job.Degraded = true
	}
	return append(screenClips, overlayPath), nil
}

func (h *Handler) policy(fallback stagerun.Func) stagerun.Policy {
	policy := stagerun.Policy{
		Attempts: h.cfg.Workflow.StageRetryAttempts,
		Logger:   h.logger,
	}
	if h.cfg.Workflow.FallbackEnabled {
		policy.Fallback = fallback
	}
	return policy
}

func (h *Handler) recordURL(job *queue.Job) string {
	ref := strings.TrimSpace(job.SourceRef)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if content, err := analyze.DecodeContent(job.ContentJSON); err == nil {
		if url := strings.TrimSpace(content.URL); strings.HasPrefix(url, "http") {
			return url
		}
	}
	return ""
}

func writePlaceholders(paths []string) error {
	for _, path := range paths {
		if err := media.WritePlaceholder(path); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck reports readiness of the rendering stage.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if !h.avatar.Configured() && !h.cfg.Workflow.FallbackEnabled {
		return stage.Unhealthy("render", "avatar.api_key not configured and fallback disabled")
	}
	return stage.Healthy("render")
}

var _ stage.Handler = (*Handler)(nil)
