package api_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reelsmith/internal/analyze"
	"reelsmith/internal/api"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

type stubFetcher struct {
	content  analyze.Content
	err      error
	checkErr error
}

func (s *stubFetcher) FetchContent(context.Context, queue.SourceKind, string) (analyze.Content, error) {
	return s.content, s.err
}

func (s *stubFetcher) CheckSource(context.Context, queue.SourceKind, string) error {
	return s.checkErr
}

type stubPreviewer struct {
	script   string
	degraded bool
	err      error
}

func (s *stubPreviewer) Generate(context.Context, analyze.Content, queue.Options) (string, bool, error) {
	return s.script, s.degraded, s.err
}

func newService(t *testing.T, opts ...api.ServiceOption) (*api.JobService, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	// A reachable stub by default; individual tests override as needed.
	opts = append([]api.ServiceOption{api.WithContentFetcher(&stubFetcher{})}, opts...)
	return api.NewJobService(cfg, store, opts...), store
}

func TestSubmitDetectsSourceKind(t *testing.T) {
	svc, _ := newService(t)

	job, err := svc.Submit(context.Background(), api.SubmitRequest{
		SourceRef: "https://github.com/owner/repo",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.SourceKind != string(queue.SourceRepository) {
		t.Fatalf("source kind = %q", job.SourceKind)
	}
	if job.Status != string(queue.StatusQueued) {
		t.Fatalf("status = %q", job.Status)
	}
	if job.Options.DurationMinutes != 5 {
		t.Fatalf("default duration = %d", job.Options.DurationMinutes)
	}
}

func TestSubmitRejectsEmptyRef(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Submit(context.Background(), api.SubmitRequest{SourceRef: "  "})
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v, want invalid source", err)
	}
}

func TestSubmitRejectsUnreachableSource(t *testing.T) {
	svc, store := newService(t, api.WithContentFetcher(&stubFetcher{
		checkErr: services.Wrap(services.ErrTransient, "analyze", "check website",
			"could not reach website", errors.New("dial timeout")),
	}))

	_, err := svc.Submit(context.Background(), api.SubmitRequest{SourceRef: "https://dead.example.com"})
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v, want invalid source", err)
	}

	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no job persisted, got %d", len(jobs))
	}
}

func TestClearRemovesTerminalJobs(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	done := testsupport.NewJob(t, store, queue.SourceRepository, "owner/done")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	failed := testsupport.NewJob(t, store, queue.SourceRepository, "owner/broken")
	failed.SetFailed("render exploded")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewJob(t, store, queue.SourceRepository, "owner/waiting")

	removed, err := svc.Clear(ctx, "")
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != queue.StatusQueued {
		t.Fatalf("remaining = %+v", remaining)
	}

	if _, err := svc.Clear(ctx, "everything"); !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v, want invalid scope rejection", err)
	}
}

func TestSubmitWithScriptMarksApproved(t *testing.T) {
	svc, _ := newService(t)

	job, err := svc.SubmitWithScript(context.Background(), api.SubmitWithScriptRequest{
		SubmitRequest: api.SubmitRequest{SourceRef: "owner/repo"},
		Script:        "[00:00]\nMerhaba dünya.",
	})
	if err != nil {
		t.Fatalf("SubmitWithScript: %v", err)
	}
	if !job.ScriptApproved {
		t.Fatal("job must carry the approved script flag")
	}

	_, err = svc.SubmitWithScript(context.Background(), api.SubmitWithScriptRequest{
		SubmitRequest: api.SubmitRequest{SourceRef: "owner/repo"},
	})
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("empty script err = %v", err)
	}
}

func TestPreviewReturnsScript(t *testing.T) {
	svc, _ := newService(t,
		api.WithContentFetcher(&stubFetcher{content: analyze.Content{Title: "demo"}}),
		api.WithScriptPreviewer(&stubPreviewer{script: "[00:00]\nMerhaba dünya bugün."}),
	)

	preview, err := svc.Preview(context.Background(), api.PreviewRequest{SourceRef: "owner/repo"})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if preview.Script == "" || preview.WordCount != 3 {
		t.Fatalf("preview = %+v", preview)
	}
}

func TestPreviewPropagatesFetchError(t *testing.T) {
	fetchErr := services.Wrap(services.ErrInvalidSource, "analyze", "fetch", "no such repository", nil)
	svc, _ := newService(t,
		api.WithContentFetcher(&stubFetcher{err: fetchErr}),
		api.WithScriptPreviewer(&stubPreviewer{script: "unused"}),
	)

	_, err := svc.Preview(context.Background(), api.PreviewRequest{SourceRef: "owner/repo"})
	if !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("err = %v", err)
	}
}

func TestDescribeUnknownJob(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Describe(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCancelQueuedJobFailsImmediately(t *testing.T) {
	svc, store := newService(t)
	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")

	immediate, err := svc.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !immediate {
		t.Fatal("queued job should be failed immediately")
	}

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != queue.StatusFailed || stored.ErrorMessage != queue.UserCancelReason {
		t.Fatalf("job = %s %q", stored.Status, stored.ErrorMessage)
	}
}

func TestResultPathLifecycle(t *testing.T) {
	svc, store := newService(t)
	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")

	if _, err := svc.ResultPath(context.Background(), job.ID); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("incomplete job err = %v", err)
	}

	result := filepath.Join(t.TempDir(), "final.mp4")
	testsupport.WriteText(t, result, "video")
	job.Status = queue.StatusCompleted
	job.ResultPath = result
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	path, err := svc.ResultPath(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("ResultPath: %v", err)
	}
	if path != result {
		t.Fatalf("path = %q", path)
	}

	if _, err := svc.ResultPath(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing job err = %v", err)
	}
}

func TestFromJobFormatsTimestamps(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	dto := api.FromJob(&queue.Job{ID: "job-1", CreatedAt: created, UpdatedAt: created})
	if dto.CreatedAt == "" {
		t.Fatal("expected formatted CreatedAt")
	}
	if got := api.ParseJobTime(dto.CreatedAt); !got.Equal(created) {
		t.Fatalf("round trip = %v, want %v", got, created)
	}
}
