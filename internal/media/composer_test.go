package media_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/media"
	"reelsmith/internal/services"
	"reelsmith/internal/testsupport"
)

func TestConcatenateRunsFFmpeg(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	composer := media.NewComposer(cfg)

	dir := t.TempDir()
	clipA := filepath.Join(dir, "clip_0.mp4")
	clipB := filepath.Join(dir, "clip_1.mp4")
	testsupport.WriteFile(t, clipA, 64)
	testsupport.WriteFile(t, clipB, 64)

	err := composer.Concatenate(context.Background(), []string{clipA, clipB}, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("Concatenate: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			t.Fatalf("temp dir %q should be cleaned up", entry.Name())
		}
	}
}

func TestConcatenateRejectsEmptyInput(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	composer := media.NewComposer(cfg)

	if err := composer.Concatenate(context.Background(), nil, "out.mp4"); err == nil {
		t.Fatal("expected error for empty clip list")
	}
	if err := composer.Concatenate(context.Background(), []string{" "}, "out.mp4"); err == nil {
		t.Fatal("expected error for blank clip path")
	}
}

func TestRunFailureWrapsComposeError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStub(t, "ffmpeg", "echo 'boom' >&2; exit 1")
	composer := media.NewComposer(cfg)

	dir := t.TempDir()
	input := filepath.Join(dir, "in.mp4")
	testsupport.WriteFile(t, input, 64)

	err := composer.Finalize(context.Background(), input, filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
	if !errors.Is(err, services.ErrCompose) {
		t.Fatalf("expected compose marker, got %v", err)
	}
}

func TestLoopToDurationValidatesTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	composer := media.NewComposer(cfg)

	if err := composer.LoopToDuration(context.Background(), "in.mp4", "out.mp4", 0); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}

func TestDurationParsesProbeOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStub(t, "ffprobe", "echo 12.500000")
	composer := media.NewComposer(cfg)

	duration, err := composer.Duration(context.Background(), "whatever.mp4")
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if duration != 12.5 {
		t.Fatalf("duration = %v, want 12.5", duration)
	}
}

func TestDurationBadOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteStub(t, "ffprobe", "echo not-a-number")
	composer := media.NewComposer(cfg)

	if _, err := composer.Duration(context.Background(), "whatever.mp4"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWritePlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos", "job-1", "final.mp4")
	if err := media.WritePlaceholder(path); err != nil {
		t.Fatalf("WritePlaceholder: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || string(data[4:8]) != "ftyp" {
		t.Fatalf("placeholder is not an mp4 header: %v", data[:8])
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	composer := media.NewComposer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := composer.MuxAudio(ctx, "v.mp4", "a.mp3", "out.mp4")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
