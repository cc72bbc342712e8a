package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

var commandContext = exec.CommandContext

// Recorder captures a scrolling browser recording of a web page through an
// external recorder command.
type Recorder struct {
	binary      string
	scrollSpeed string
	timeout     time.Duration
}

// NewRecorder constructs a Recorder from configuration.
func NewRecorder(cfg *config.Config) *Recorder {
	return &Recorder{
		binary:      cfg.RecorderBinary(),
		scrollSpeed: cfg.Recorder.ScrollSpeed,
		timeout:     time.Duration(cfg.Recorder.TimeoutSeconds) * time.Second,
	}
}

// Available reports whether the recorder binary resolves on PATH.
func (r *Recorder) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Record captures url for the requested duration and writes an MP4 to
// outputPath.
func (r *Recorder) Record(ctx context.Context, url string, seconds int, outputPath string) error {
	trimmed := strings.TrimSpace(url)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return services.Wrap(services.ErrRecord, "render", "record",
			"screen recording needs an http or https URL", fmt.Errorf("got %q", url))
	}
	if seconds <= 0 {
		return errors.New("record: duration must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := []string{
		"--url", trimmed,
		"--duration", strconv.Itoa(seconds),
		"--output", outputPath,
	}
	if r.scrollSpeed != "" {
		args = append(args, "--scroll", r.scrollSpeed)
	}

	cmd := commandContext(runCtx, r.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "render", "record",
				"screen recording timed out", runCtx.Err())
		}
		detail := strings.TrimSpace(string(output))
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		return services.Wrap(services.ErrRecord, "render", "record",
			"screen recorder failed", fmt.Errorf("%w: %s", err, detail))
	}
	return nil
}
