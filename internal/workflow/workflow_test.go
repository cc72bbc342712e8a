package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/workflow"
)

type stubHandler struct {
	name       string
	prepareErr error
	execErr    error
	execFn     func(*queue.Job)
	executed   atomic.Int32
	gate       chan struct{}
}

func (s *stubHandler) Prepare(context.Context, *queue.Job) error { return s.prepareErr }

func (s *stubHandler) Execute(ctx context.Context, job *queue.Job) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.executed.Add(1)
	if s.execFn != nil {
		s.execFn(job)
	}
	return s.execErr
}

func (s *stubHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name) }

func okStages() (workflow.StageSet, map[string]*stubHandler) {
	handlers := map[string]*stubHandler{
		"analyze": {name: "analyze", execFn: func(j *queue.Job) { j.ContentJSON = `{"kind":"repository"}` }},
		"script":  {name: "script", execFn: func(j *queue.Job) { j.ScriptText = "Merhaba." }},
		"narrate": {name: "narrate", execFn: func(j *queue.Job) { j.AudioPath = "/tmp/narration.mp3" }},
		"render":  {name: "render", execFn: func(j *queue.Job) { _ = j.SetClipPaths([]string{"/tmp/clip_00.mp4"}) }},
		"compose": {name: "compose", execFn: func(j *queue.Job) { j.ResultPath = "/tmp/final.mp4" }},
	}
	return workflow.StageSet{
		Analyze: handlers["analyze"],
		Script:  handlers["script"],
		Narrate: handlers["narrate"],
		Render:  handlers["render"],
		Compose: handlers["compose"],
	}, handlers
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestManagerProcessesJobToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := okStages()

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")
	final := waitForStatus(t, store, job.ID, queue.StatusCompleted)

	if final.Progress != 100 {
		t.Fatalf("progress = %v, want 100", final.Progress)
	}
	if final.ResultPath != "/tmp/final.mp4" {
		t.Fatalf("result path = %q", final.ResultPath)
	}
	if final.ScriptText != "Merhaba." {
		t.Fatalf("script text = %q", final.ScriptText)
	}
	for name, handler := range handlers {
		if handler.executed.Load() != 1 {
			t.Fatalf("handler %s executed %d times", name, handler.executed.Load())
		}
	}
}

func TestManagerRecordsStageFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := okStages()
	handlers["narrate"].execErr = services.Wrap(services.ErrSynthesis, "narrate", "synthesize",
		"speech vendor rejected the request", nil)

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")
	final := waitForStatus(t, store, job.ID, queue.StatusFailed)

	if final.ErrorMessage != "speech vendor rejected the request" {
		t.Fatalf("error message = %q", final.ErrorMessage)
	}
	if handlers["render"].executed.Load() != 0 {
		t.Fatal("stages after the failure must not run")
	}
}

func TestManagerStatusSanitizesLastError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := okStages()
	handlers["narrate"].execErr = services.Wrap(services.ErrSynthesis, "narrate", "synthesize",
		"speech vendor rejected the request",
		errors.New(`http 401: {"error":"invalid api key sk_live_super_secret_vendor_payload"}`))

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")
	waitForStatus(t, store, job.ID, queue.StatusFailed)

	summary := manager.Status(context.Background())
	if summary.LastError == "" {
		t.Fatal("expected a last error after a stage failure")
	}
	if strings.Contains(summary.LastError, "sk_live_super_secret_vendor_payload") {
		t.Fatalf("status leaked the vendor payload: %q", summary.LastError)
	}
}

func TestManagerHonorsCancelAtStageBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, handlers := okStages()
	gate := make(chan struct{})
	handlers["analyze"].gate = gate

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	job := testsupport.NewJob(t, store, queue.SourceRepository, "owner/repo")
	waitForStatus(t, store, job.ID, queue.StatusAnalyzing)

	immediate, err := store.RequestCancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if immediate {
		t.Fatal("in-flight job must not be failed directly by the cancel request")
	}
	close(gate)

	final := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if final.ErrorMessage != queue.UserCancelReason {
		t.Fatalf("error message = %q", final.ErrorMessage)
	}
	if handlers["script"].executed.Load() != 0 {
		t.Fatal("no further stages may run after cancellation")
	}
}

func TestManagerStatusReportsHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, _ := okStages()

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	summary := manager.Status(context.Background())
	if summary.Running {
		t.Fatal("manager should not report running before Start")
	}
	if len(summary.StageHealth) != 5 {
		t.Fatalf("stage health entries = %d, want 5", len(summary.StageHealth))
	}
	for name, health := range summary.StageHealth {
		if !health.Ready {
			t.Fatalf("stage %s unexpectedly unhealthy", name)
		}
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !manager.Running() {
		t.Fatal("manager should report running after Start")
	}
	manager.Stop()
	if manager.Running() {
		t.Fatal("manager should not report running after Stop")
	}
}

func TestStartRequiresAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages, _ := okStages()
	stages.Compose = nil

	manager := workflow.NewManager(cfg, store, logging.NewNop(), stages)
	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("expected error with a missing stage handler")
	}
}
