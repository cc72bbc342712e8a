package render_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

const scriptWithSections = "[00:00]\nBirinci bölüm.\n\n[00:30]\nİkinci bölüm."

func TestHeyGenRenderClip(t *testing.T) {
	var statusCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/video/generate":
			if r.Header.Get("X-Api-Key") != "key" {
				t.Errorf("missing api key")
			}
			w.Write([]byte(`{"data":{"video_id":"vid-1"}}`))
		case r.URL.Path == "/v1/video_status.get":
			if statusCalls.Add(1) < 2 {
				w.Write([]byte(`{"data":{"status":"processing"}}`))
				return
			}
			w.Write([]byte(`{"data":{"status":"completed","video_url":"` + serverURL(r) + `/clip.mp4"}}`))
		case r.URL.Path == "/clip.mp4":
			w.Write([]byte("clip-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	renderer := render.NewHeyGen(config.Avatar{
		APIKey:               "key",
		BaseURL:              server.URL,
		PollIntervalSeconds:  1,
		RenderTimeoutSeconds: 30,
	}, server.Client())

	output := filepath.Join(t.TempDir(), "clip.mp4")
	err := renderer.RenderClip(context.Background(), render.ClipRequest{Text: "Merhaba"}, output)
	if err != nil {
		t.Fatalf("RenderClip: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "clip-bytes" {
		t.Fatalf("clip file: %q %v", data, err)
	}
}

func serverURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestHeyGenFailedRender(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/video/generate":
			w.Write([]byte(`{"data":{"video_id":"vid-1"}}`))
		case "/v1/video_status.get":
			w.Write([]byte(`{"data":{"status":"failed"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	renderer := render.NewHeyGen(config.Avatar{
		APIKey:               "key",
		BaseURL:              server.URL,
		PollIntervalSeconds:  1,
		RenderTimeoutSeconds: 30,
	}, server.Client())

	err := renderer.RenderClip(context.Background(), render.ClipRequest{Text: "Merhaba"}, filepath.Join(t.TempDir(), "clip.mp4"))
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestDIDRenderClipUsesCustomImage(t *testing.T) {
	var sawImage atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/talks" && r.Method == http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), "https://example.com/me.png") {
				sawImage.Store(true)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"talk-1"}`))
		case r.URL.Path == "/talks/talk-1":
			w.Write([]byte(`{"status":"done","result_url":"` + serverURL(r) + `/talk.mp4"}`))
		case r.URL.Path == "/talk.mp4":
			w.Write([]byte("talk-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	renderer := render.NewDID(config.Avatar{
		APIKey:               "key",
		BaseURL:              server.URL,
		PollIntervalSeconds:  1,
		RenderTimeoutSeconds: 30,
	}, server.Client())

	output := filepath.Join(t.TempDir(), "talk.mp4")
	err := renderer.RenderClip(context.Background(), render.ClipRequest{
		Text:     "Merhaba",
		ImageURL: "https://example.com/me.png",
	}, output)
	if err != nil {
		t.Fatalf("RenderClip: %v", err)
	}
	if !sawImage.Load() {
		t.Fatal("custom image should be submitted as source_url")
	}
}

func TestPresenterImageFallsBackToStyle(t *testing.T) {
	if render.PresenterImage("", "https://example.com/me.png") != "https://example.com/me.png" {
		t.Fatal("custom image should win")
	}
	if render.PresenterImage("casual_female", "") == render.PresenterImage("professional_male", "") {
		t.Fatal("styles should map to distinct presenters")
	}
	if render.PresenterImage("unknown", "") == "" {
		t.Fatal("unknown style should fall back to a default presenter")
	}
}

func TestRecorderRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStub(t, "webrec", `touch "$6"`)
	recorder := render.NewRecorder(cfg)

	output := filepath.Join(t.TempDir(), "screen.mp4")
	if err := recorder.Record(context.Background(), "https://example.com", 30, output); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestRecorderRejectsNonHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	recorder := render.NewRecorder(cfg)
	err := recorder.Record(context.Background(), "file:///etc/passwd", 30, "out.mp4")
	if !errors.Is(err, services.ErrRecord) {
		t.Fatalf("expected record error, got %v", err)
	}
}

type stubRenderer struct {
	err        error
	configured bool
	requests   []render.ClipRequest
}

func (s *stubRenderer) RenderClip(_ context.Context, req render.ClipRequest, outputPath string) error {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(outputPath, []byte("clip"), 0o644)
}

func (s *stubRenderer) Configured() bool { return s.configured }
func (s *stubRenderer) Name() string     { return "stub" }

func TestHandlerAvatarChunking(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageRetryAttempts = 1
	renderer := &stubRenderer{configured: true}
	handler := render.NewHandler(cfg, logging.NewNop(), render.WithAvatarRenderer(renderer))
	job := &queue.Job{
		ID:         "job-1",
		ScriptText: scriptWithSections,
		Options:    queue.Options{RenderMode: queue.RenderAvatar, DurationMinutes: 5},
	}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	clips, err := job.ClipPaths()
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %v", clips)
	}
	if len(renderer.requests) != 2 {
		t.Fatalf("renderer called %d times", len(renderer.requests))
	}
	for _, clip := range clips {
		if _, err := os.Stat(clip); err != nil {
			t.Fatalf("missing clip %s: %v", clip, err)
		}
	}
}

func TestHandlerAvatarFallbackWritesPlaceholders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageRetryAttempts = 1
	renderer := &stubRenderer{configured: true, err: services.Wrap(services.ErrTransient, "render", "stub", "down", nil)}
	handler := render.NewHandler(cfg, logging.NewNop(), render.WithAvatarRenderer(renderer))
	job := &queue.Job{
		ID:         "job-1",
		ScriptText: scriptWithSections,
		Options:    queue.Options{RenderMode: queue.RenderAvatar, DurationMinutes: 5},
	}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !job.Degraded {
		t.Fatal("placeholder clips should mark job degraded")
	}
	clips, _ := job.ClipPaths()
	for _, clip := range clips {
		info, err := os.Stat(clip)
		if err != nil || info.Size() == 0 {
			t.Fatalf("placeholder missing at %s: %v", clip, err)
		}
	}
}

func TestHandlerOverlayOrdersClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageRetryAttempts = 1
	testsupport.WriteStub(t, "webrec", `touch "$6"`)
	overlay := &stubRenderer{configured: true}
	handler := render.NewHandler(cfg, logging.NewNop(), render.WithOverlayRenderer(overlay))
	job := &queue.Job{
		ID:          "job-1",
		SourceRef:   "https://example.com",
		CustomImage: "https://example.com/me.png",
		ScriptText:  scriptWithSections,
		Options:     queue.Options{RenderMode: queue.RenderCustomOverlay, DurationMinutes: 5},
	}

	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	clips, _ := job.ClipPaths()
	if len(clips) != 2 {
		t.Fatalf("clips = %v", clips)
	}
	if filepath.Base(clips[0]) != "screen.mp4" || filepath.Base(clips[1]) != "presenter.mp4" {
		t.Fatalf("clip order wrong: %v", clips)
	}
	if len(overlay.requests) != 1 || overlay.requests[0].ImageURL != "https://example.com/me.png" {
		t.Fatalf("overlay requests = %+v", overlay.requests)
	}
}

func TestHandlerOverlayRequiresImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := render.NewHandler(cfg, logging.NewNop())
	job := &queue.Job{
		ID:         "job-1",
		SourceRef:  "https://example.com",
		ScriptText: scriptWithSections,
		Options:    queue.Options{RenderMode: queue.RenderCustomOverlay},
	}
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("expected invalid source, got %v", err)
	}
}

func TestHandlerScreenRequiresURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := render.NewHandler(cfg, logging.NewNop())
	job := &queue.Job{
		ID:         "job-1",
		SourceRef:  "/tmp/notes.md",
		ScriptText: scriptWithSections,
		Options:    queue.Options{RenderMode: queue.RenderScreenRecord},
	}
	if err := handler.Prepare(context.Background(), job); !errors.Is(err, services.ErrInvalidSource) {
		t.Fatalf("expected invalid source, got %v", err)
	}
}
