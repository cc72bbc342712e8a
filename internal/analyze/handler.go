package analyze

import (
	"context"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

// Handler resolves job source material during the analyzing stage.
type Handler struct {
	cfg     *config.Config
	logger  *slog.Logger
	github  *GitHubClient
	website *WebsiteClient
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithGitHubClient overrides the repository client.
func WithGitHubClient(client *GitHubClient) HandlerOption {
	return func(h *Handler) {
		if client != nil {
			h.github = client
		}
	}
}

// WithWebsiteClient overrides the website client.
func WithWebsiteClient(client *WebsiteClient) HandlerOption {
	return func(h *Handler) {
		if client != nil {
			h.website = client
		}
	}
}

// NewHandler constructs the analyzing stage handler.
func NewHandler(cfg *config.Config, logger *slog.Logger, opts ...HandlerOption) *Handler {
	handler := &Handler{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "analyze"),
		github:  NewGitHubClient(),
		website: NewWebsiteClient(nil),
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Prepare validates the source reference and pins down the source kind.
func (h *Handler) Prepare(_ context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.SourceRef) == "" {
		return services.Wrap(services.ErrInvalidSource, "analyze", "validate",
			"job has no source reference", nil)
	}
	if _, ok := queue.ParseSourceKind(string(job.SourceKind)); !ok {
		job.SourceKind = DetectKind(job.SourceRef)
	}
	return nil
}

// FetchContent resolves a source reference into structured content.
func (h *Handler) FetchContent(ctx context.Context, kind queue.SourceKind, ref string) (Content, error) {
	switch kind {
	case queue.SourceRepository:
		return h.github.Fetch(ctx, ref)
	case queue.SourceWebsite:
		return h.website.Fetch(ctx, ref)
	case queue.SourceDocument:
		return ReadDocument(ctx, ref)
	default:
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "dispatch",
			"unknown source kind "+string(kind), nil)
	}
}

// CheckSource verifies that a source is classifiable and reachable without
// pulling its full content. The gateway calls this before persisting a job so
// a dead source never enters the queue.
func (h *Handler) CheckSource(ctx context.Context, kind queue.SourceKind, ref string) error {
	switch kind {
	case queue.SourceRepository:
		return h.github.Check(ctx, ref)
	case queue.SourceWebsite:
		return h.website.Check(ctx, ref)
	case queue.SourceDocument:
		return CheckDocument(ref)
	default:
		return services.Wrap(services.ErrInvalidSource, "analyze", "dispatch",
			"unknown source kind "+string(kind), nil)
	}
}

// Execute fetches the source material and stores structured content on the job.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	content, err := h.FetchContent(ctx, job.SourceKind, job.SourceRef)
	if err != nil {
		return err
	}

	encoded, err := content.Encode()
	if err != nil {
		return services.Wrap(services.ErrInvalidSource, "analyze", "encode",
			"could not persist analyzed content", err)
	}
	job.ContentJSON = encoded
	if content.Truncated {
		job.Truncated = true
	}

	h.logger.Info("source analyzed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("kind", string(content.Kind)),
		logging.String("title", content.Title),
		logging.Bool("truncated", content.Truncated),
	)
	return nil
}

// HealthCheck reports readiness of the analyzing stage.
func (h *Handler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("analyze")
}

var _ stage.Handler = (*Handler)(nil)
