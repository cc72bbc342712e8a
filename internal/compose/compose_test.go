package compose_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/testsupport"
)

// touchLastArg is a stub ffmpeg body that creates whatever output path the
// composer asked for.
const touchLastArg = `for last; do :; done
touch "$last"`

func newComposeJob(t *testing.T, cfg *config.Config, clipCount int) *queue.Job {
	t.Helper()

	job := &queue.Job{ID: "job-1"}
	jobDir := cfg.JobDir(job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		t.Fatal(err)
	}

	clips := make([]string, 0, clipCount)
	for i := 0; i < clipCount; i++ {
		clip := filepath.Join(jobDir, fmt.Sprintf("clip_%02d.mp4", i))
		testsupport.WriteText(t, clip, "video")
		clips = append(clips, clip)
	}
	if err := job.SetClipPaths(clips); err != nil {
		t.Fatal(err)
	}

	job.AudioPath = filepath.Join(jobDir, "narration.mp3")
	testsupport.WriteText(t, job.AudioPath, "audio")
	return job
}

func TestHandlerPrepareValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handler := compose.NewHandler(cfg, logging.NewNop())

	if err := handler.Prepare(context.Background(), &queue.Job{ID: "job-1"}); err == nil {
		t.Fatal("expected error without clips")
	}

	job := newComposeJob(t, cfg, 1)
	job.AudioPath = ""
	if err := handler.Prepare(context.Background(), job); err == nil {
		t.Fatal("expected error without narration audio")
	}

	job = newComposeJob(t, cfg, 1)
	if err := handler.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
}

func TestHandlerExecuteConcatenatesClips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logFile := filepath.Join(t.TempDir(), "ffmpeg.log")
	testsupport.WriteStub(t, "ffmpeg", fmt.Sprintf("echo \"$@\" >> %q\n%s", logFile, touchLastArg))
	testsupport.WriteStub(t, "ffprobe", "echo 12.0")

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 2)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := filepath.Join(cfg.JobDir(job.ID), compose.ResultFileName)
	if job.ResultPath != want {
		t.Fatalf("ResultPath = %q, want %q", job.ResultPath, want)
	}
	if _, err := os.Stat(job.ResultPath); err != nil {
		t.Fatalf("final video missing: %v", err)
	}
	if job.Degraded {
		t.Fatal("successful compose must not mark job degraded")
	}

	log, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(log, []byte("-f concat")) {
		t.Fatalf("expected concat invocation, got:\n%s", log)
	}
	if !bytes.Contains(log, []byte("+faststart")) {
		t.Fatalf("expected faststart packaging, got:\n%s", log)
	}
}

func TestHandlerExecuteLoopsShortVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logFile := filepath.Join(t.TempDir(), "ffmpeg.log")
	testsupport.WriteStub(t, "ffmpeg", fmt.Sprintf("echo \"$@\" >> %q\n%s", logFile, touchLastArg))
	testsupport.WriteStub(t, "ffprobe", `for last; do :; done
case "$last" in
*.mp3) echo 60.0 ;;
*) echo 5.0 ;;
esac`)

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 1)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	log, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(log, []byte("-stream_loop")) {
		t.Fatalf("short video should be looped to the narration length, got:\n%s", log)
	}
}

func TestHandlerExecuteOverlayMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logFile := filepath.Join(t.TempDir(), "ffmpeg.log")
	testsupport.WriteStub(t, "ffmpeg", fmt.Sprintf("echo \"$@\" >> %q\n%s", logFile, touchLastArg))
	testsupport.WriteStub(t, "ffprobe", "echo 30.0")

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 2)
	job.Options.RenderMode = queue.RenderCustomOverlay

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	log, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(log, []byte("-filter_complex")) {
		t.Fatalf("overlay mode must composite the presenter clip, got:\n%s", log)
	}
	if bytes.Contains(log, []byte("-f concat")) {
		t.Fatalf("overlay mode must not concatenate, got:\n%s", log)
	}
}

func TestHandlerExecuteLoopsShortOverlay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logFile := filepath.Join(t.TempDir(), "ffmpeg.log")
	testsupport.WriteStub(t, "ffmpeg", fmt.Sprintf("echo \"$@\" >> %q\n%s", logFile, touchLastArg))
	// The presenter clip (clip_01) is far shorter than the screen recording.
	testsupport.WriteStub(t, "ffprobe", "case \"$@\" in *clip_01.mp4) echo 5.0 ;; *) echo 60.0 ;; esac")

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 2)
	job.Options.RenderMode = queue.RenderCustomOverlay

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	log, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(log, []byte("-stream_loop")) {
		t.Fatalf("short presenter clip must be looped to the base duration, got:\n%s", log)
	}
	if !bytes.Contains(log, []byte("-filter_complex")) {
		t.Fatalf("overlay mode must composite the presenter clip, got:\n%s", log)
	}
}

func TestHandlerFallbackWritesPlaceholder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StageRetryAttempts = 1
	testsupport.WriteStub(t, "ffmpeg", "exit 1")
	testsupport.WriteStub(t, "ffprobe", "echo 30.0")

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 2)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !job.Degraded {
		t.Fatal("placeholder compose should mark job degraded")
	}
	data, err := os.ReadFile(job.ResultPath)
	if err != nil {
		t.Fatalf("placeholder missing: %v", err)
	}
	if !bytes.Contains(data, []byte("ftyp")) {
		t.Fatal("placeholder is not an MP4 container")
	}
}

func TestHandlerFailureWithFallbackDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.FallbackEnabled = false
	cfg.Workflow.StageRetryAttempts = 1
	testsupport.WriteStub(t, "ffmpeg", "exit 1")
	testsupport.WriteStub(t, "ffprobe", "echo 30.0")

	handler := compose.NewHandler(cfg, logging.NewNop())
	job := newComposeJob(t, cfg, 2)

	if err := handler.Execute(context.Background(), job); err == nil {
		t.Fatal("expected error with fallback disabled")
	}
	if job.ResultPath != "" {
		t.Fatalf("failed compose must not record a result path, got %q", job.ResultPath)
	}
}

func TestHandlerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	handler := compose.NewHandler(cfg, logging.NewNop())
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy with stubbed binaries: %s", health.Detail)
	}

	cfg.Compose.FFmpegBinary = "definitely-not-ffmpeg"
	handler = compose.NewHandler(cfg, logging.NewNop())
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy when ffmpeg is missing")
	}
}
