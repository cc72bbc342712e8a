package api

import (
	"context"
	"errors"
	"os"
	"strings"

	"reelsmith/internal/analyze"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/scriptgen"
	"reelsmith/internal/services"
)

// JobStore abstracts the queue persistence the service layer needs.
type JobStore interface {
	NewJob(ctx context.Context, kind queue.SourceKind, sourceRef, customImage string, opts queue.Options) (*queue.Job, error)
	NewJobWithScript(ctx context.Context, kind queue.SourceKind, sourceRef, customImage string, opts queue.Options, script string) (*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	RequestCancel(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// ScriptPreviewer produces a script for previewing without queueing a job.
type ScriptPreviewer interface {
	Generate(ctx context.Context, content analyze.Content, opts queue.Options) (string, bool, error)
}

// ContentFetcher resolves a source reference into analyzed content and
// verifies reachability ahead of job creation.
type ContentFetcher interface {
	FetchContent(ctx context.Context, kind queue.SourceKind, ref string) (analyze.Content, error)
	CheckSource(ctx context.Context, kind queue.SourceKind, ref string) error
}

// JobService exposes job operations returning API DTOs.
type JobService struct {
	cfg       *config.Config
	store     JobStore
	fetcher   ContentFetcher
	previewer ScriptPreviewer
}

// ServiceOption customizes the job service.
type ServiceOption func(*JobService)

// WithContentFetcher overrides the source analyzer.
func WithContentFetcher(fetcher ContentFetcher) ServiceOption {
	return func(s *JobService) {
		if fetcher != nil {
			s.fetcher = fetcher
		}
	}
}

// WithScriptPreviewer overrides the script generator used for previews.
func WithScriptPreviewer(previewer ScriptPreviewer) ServiceOption {
	return func(s *JobService) {
		if previewer != nil {
			s.previewer = previewer
		}
	}
}

// NewJobService constructs a JobService around the provided store.
func NewJobService(cfg *config.Config, store JobStore, opts ...ServiceOption) *JobService {
	svc := &JobService{
		cfg:       cfg,
		store:     store,
		fetcher:   analyze.NewHandler(cfg, logging.NewNop()),
		previewer: scriptgen.NewHandler(cfg, logging.NewNop()),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit validates the request and enqueues a new job.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (*Job, error) {
	ref := strings.TrimSpace(req.SourceRef)
	if ref == "" {
		return nil, services.Wrap(services.ErrInvalidSource, "api", "submit",
			"source reference is required", nil)
	}
	kind := analyze.DetectKind(ref)
	if err := s.checkSource(ctx, kind, ref); err != nil {
		return nil, err
	}
	job, err := s.store.NewJob(ctx, kind, ref, strings.TrimSpace(req.CustomImage), ToOptions(req.Options))
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// SubmitWithScript enqueues a job that uses the provided script verbatim.
func (s *JobService) SubmitWithScript(ctx context.Context, req SubmitWithScriptRequest) (*Job, error) {
	ref := strings.TrimSpace(req.SourceRef)
	if ref == "" {
		return nil, services.Wrap(services.ErrInvalidSource, "api", "submit",
			"source reference is required", nil)
	}
	if strings.TrimSpace(req.Script) == "" {
		return nil, services.Wrap(services.ErrInvalidSource, "api", "submit",
			"script must not be empty", nil)
	}
	kind := analyze.DetectKind(ref)
	if err := s.checkSource(ctx, kind, ref); err != nil {
		return nil, err
	}
	job, err := s.store.NewJobWithScript(ctx, kind, ref, strings.TrimSpace(req.CustomImage), ToOptions(req.Options), req.Script)
	if err != nil {
		return nil, err
	}
	dto := FromJob(job)
	return &dto, nil
}

// checkSource rejects jobs pointing at sources that cannot be reached. Any
// probe failure surfaces as an invalid source so nothing dead is queued.
func (s *JobService) checkSource(ctx context.Context, kind queue.SourceKind, ref string) error {
	err := s.fetcher.CheckSource(ctx, kind, ref)
	if err == nil || errors.Is(err, services.ErrInvalidSource) {
		return err
	}
	return services.Wrap(services.ErrInvalidSource, "api", "submit",
		"source is not reachable", err)
}

// Preview fetches the source and generates a script synchronously.
func (s *JobService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	ref := strings.TrimSpace(req.SourceRef)
	if ref == "" {
		return nil, services.Wrap(services.ErrInvalidSource, "api", "preview",
			"source reference is required", nil)
	}
	opts := ToOptions(req.Options)
	if err := opts.Normalize(); err != nil {
		return nil, err
	}

	content, err := s.fetcher.FetchContent(ctx, analyze.DetectKind(ref), ref)
	if err != nil {
		return nil, err
	}
	script, degraded, err := s.previewer.Generate(ctx, content, opts)
	if err != nil {
		return nil, err
	}
	return &PreviewResponse{
		Script:    script,
		Degraded:  degraded,
		WordCount: scriptgen.WordCount(script),
	}, nil
}

// List returns jobs filtered by status, newest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]Job, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Clear removes terminal jobs. Scope selects "completed", "failed", or both
// when empty. Queued and processing jobs are never touched.
func (s *JobService) Clear(ctx context.Context, scope string) (int64, error) {
	switch scope {
	case "completed":
		return s.store.ClearCompleted(ctx)
	case "failed":
		return s.store.ClearFailed(ctx)
	case "":
		completed, err := s.store.ClearCompleted(ctx)
		if err != nil {
			return completed, err
		}
		failed, err := s.store.ClearFailed(ctx)
		return completed + failed, err
	default:
		return 0, services.Wrap(services.ErrInvalidSource, "api", "clear",
			"unknown clear scope "+scope, nil)
	}
}

// Describe fetches a single job. It returns services.ErrNotFound for unknown
// identifiers.
func (s *JobService) Describe(ctx context.Context, id string) (*Job, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "describe",
			"job not found", nil)
	}
	dto := FromJob(job)
	return &dto, nil
}

// Cancel requests cancellation for a job. The returned flag reports whether
// the job was failed immediately.
func (s *JobService) Cancel(ctx context.Context, id string) (bool, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, services.Wrap(services.ErrNotFound, "api", "cancel",
			"job not found", nil)
	}
	return s.store.RequestCancel(ctx, id)
}

// ResultPath resolves the downloadable artifact for a completed job.
func (s *JobService) ResultPath(ctx context.Context, id string) (string, error) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", services.Wrap(services.ErrNotFound, "api", "download",
			"job not found", nil)
	}
	if job.Status != queue.StatusCompleted || strings.TrimSpace(job.ResultPath) == "" {
		return "", services.Wrap(services.ErrNotReady, "api", "download",
			"job has not produced a video yet", nil)
	}
	if _, err := os.Stat(job.ResultPath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "api", "download",
			"result file is missing from disk", err)
	}
	return job.ResultPath, nil
}
