package narrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/scriptgen"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stagerun"
	"reelsmith/internal/textutil"
)

// Synthesizer abstracts text-to-speech for tests.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceStyle string) ([]byte, error)
	Configured() bool
}

// Handler produces the narration audio during the narrating stage.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	client Synthesizer
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithSynthesizer overrides the speech client.
func WithSynthesizer(synthesizer Synthesizer) HandlerOption {
	return func(h *Handler) {
		if synthesizer != nil {
			h.client = synthesizer
		}
	}
}

// NewHandler constructs the narrating stage handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) *Handler {
	handler := &Handler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "narrate"),
		client: NewClient(cfg.Speech),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare verifies a script is present and makes room for the audio file.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.ScriptText) == "" {
		return services.Wrap(services.ErrSynthesis, "narrate", "validate",
			"job has no script to narrate", nil)
	}
	if err := os.MkdirAll(h.cfg.JobDir(job.ID), 0o755); err != nil {
		return services.Wrap(services.ErrSynthesis, "narrate", "prepare",
			"could not create job media directory", err)
	}
	return nil
}

// Execute synthesizes the narration, truncating oversized text and falling
// back to a silent placeholder when synthesis is unavailable.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	text := scriptgen.PlainText(job.ScriptText)

	limit := h.cfg.Speech.MaxChars
	text, truncated := textutil.TruncateAtBoundary(text, limit)
	if truncated {
		job.Truncated = true
		h.logger.Warn("narration text truncated",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("limit", limit),
		)
	}

	audioPath := filepath.Join(h.cfg.JobDir(job.ID), "narration.mp3")

	policy := stagerun.Policy{
		Attempts: h.cfg.Workflow.StageRetryAttempts,
		Logger:   h.logger,
	}
	if h.cfg.Workflow.FallbackEnabled {
		policy.Fallback = func(context.Context) error {
			return WritePlaceholder(audioPath)
		}
	}

	result, err := stagerun.Run(ctx, policy, func(ctx context.Context) error {
		if !h.client.Configured() {
			return services.Wrap(services.ErrConfiguration, "narrate", "synthesize",
				"speech synthesis is not configured, set speech.api_key", nil)
		}
		audio, synthErr := h.client.Synthesize(ctx, text, job.Options.VoiceStyle)
		if synthErr != nil {
			return classifySynthesisError(synthErr)
		}
		if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
			return services.Wrap(services.ErrSynthesis, "narrate", "write audio",
				"could not write narration file", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	job.AudioPath = audioPath
	if result.FallbackUsed {
		job.Degraded = true
	}

	h.logger.Info("narration ready",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("audio", audioPath),
		logging.Bool("fallback", result.FallbackUsed),
		logging.Bool("truncated", truncated),
	)
	return nil
}

func classifySynthesisError(err error) error {
	var statusErr *statusError
	if errors.As(err, &statusErr) && !statusErr.Transient() {
		return services.Wrap(services.ErrSynthesis, "narrate", "synthesize",
			fmt.Sprintf("speech vendor rejected the request (http %d)", statusErr.StatusCode), err)
	}
	return services.Wrap(services.ErrTransient, "narrate", "synthesize",
		"speech synthesis failed", err)
}

// HealthCheck reports readiness of the narrating stage.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if !h.client.Configured() {
		if h.cfg.Workflow.FallbackEnabled {
			return stage.Healthy("narrate")
		}
		return stage.Unhealthy("narrate", "speech.api_key not configured and fallback disabled")
	}
	return stage.Healthy("narrate")
}

var _ stage.Handler = (*Handler)(nil)
