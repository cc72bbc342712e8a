package scriptgen

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/analyze"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stagerun"
)

// Generator abstracts script completion for tests.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

// Handler produces the narration script during the scripting stage.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
	client Generator
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithGenerator overrides the completion client.
func WithGenerator(generator Generator) HandlerOption {
	return func(h *Handler) {
		if generator != nil {
			h.client = generator
		}
	}
}

// NewHandler constructs the scripting stage handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) *Handler {
	handler := &Handler{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "scriptgen"),
		client: NewClient(cfg.Script),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare verifies analyzed content is present.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	if job.ScriptApproved && strings.TrimSpace(job.ScriptText) != "" {
		return nil
	}
	if strings.TrimSpace(job.ContentJSON) == "" {
		return services.Wrap(services.ErrGeneration, "script", "validate",
			"job has no analyzed content", nil)
	}
	return nil
}

// Execute generates the script, or falls back to a demo script when the
// endpoint is unavailable and fallback is enabled.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	if job.ScriptApproved && strings.TrimSpace(job.ScriptText) != "" {
		h.logger.Info("using approved script",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("words", WordCount(job.ScriptText)),
		)
		return nil
	}

	content, err := analyze.DecodeContent(job.ContentJSON)
	if err != nil {
		return services.Wrap(services.ErrGeneration, "script", "decode content",
			"analyzed content is unreadable", err)
	}

	script, degraded, err := h.Generate(ctx, content, job.Options)
	if err != nil {
		return err
	}

	job.ScriptText = script
	if degraded {
		job.Degraded = true
	}

	h.logger.Info("script ready",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("words", WordCount(script)),
		logging.Int("sections", len(ParseSections(script))),
		logging.Bool("fallback", degraded),
	)
	return nil
}

// Generate produces a script for the given content outside of a queued job.
// The preview endpoint uses this path. The bool reports fallback use.
func (h *Handler) Generate(ctx context.Context, content analyze.Content, opts queue.Options) (string, bool, error) {
	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = h.cfg.Workflow.Language
	}

	policy := stagerun.Policy{
		Attempts: h.cfg.Workflow.StageRetryAttempts,
		Logger:   h.logger,
	}
	if h.cfg.Workflow.FallbackEnabled {
		policy.Fallback = func(context.Context) error { return nil }
	}

	var script string
	result, err := stagerun.Run(ctx, policy, func(ctx context.Context) error {
		if !h.client.Configured() {
			return services.Wrap(services.ErrConfiguration, "script", "generate",
				"script generation is not configured, set script.api_key", nil)
		}
		generated, genErr := h.client.Complete(ctx, systemPrompt, BuildPrompt(content, opts, language))
		if genErr != nil {
			return classifyGenerateError(genErr)
		}
		if strings.TrimSpace(generated) == "" {
			return services.Wrap(services.ErrGeneration, "script", "generate",
				"model returned an empty script", nil)
		}
		script = generated
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if result.FallbackUsed {
		return DemoScript(content.Title, language), true, nil
	}
	return script, false, nil
}

func classifyGenerateError(err error) error {
	return services.Wrap(services.ErrGeneration, "script", "generate",
		"script generation failed", err)
}

// HealthCheck reports readiness of the scripting stage.
func (h *Handler) HealthCheck(_ context.Context) stage.Health {
	if !h.client.Configured() {
		if h.cfg.Workflow.FallbackEnabled {
			return stage.Healthy("script")
		}
		return stage.Unhealthy("script", "script.api_key not configured and fallback disabled")
	}
	return stage.Healthy("script")
}

var _ stage.Handler = (*Handler)(nil)
