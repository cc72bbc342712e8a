package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
)

var commandContext = exec.CommandContext

// Composer runs ffmpeg operations with bounded concurrency.
type Composer struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
	sem     chan struct{}
	logger  *slog.Logger
}

// Option configures the composer.
type Option func(*Composer)

// WithLogger attaches a logger for command diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer constructs a Composer from configuration.
func NewComposer(cfg *config.Config, opts ...Option) *Composer {
	maxConcurrent := cfg.Compose.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	composer := &Composer{
		ffmpeg:  cfg.FFmpegBinary(),
		ffprobe: cfg.FFprobeBinary(),
		timeout: time.Duration(cfg.Compose.TimeoutSeconds) * time.Second,
		sem:     make(chan struct{}, maxConcurrent),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(composer)
	}
	return composer
}

// Concatenate joins clips in order into output using the concat demuxer with
// stream copy. A single clip is copied through unchanged.
func (c *Composer) Concatenate(ctx context.Context, clips []string, output string) error {
	if len(clips) == 0 {
		return errors.New("no clips to concatenate")
	}
	for _, clip := range clips {
		if strings.TrimSpace(clip) == "" {
			return errors.New("empty clip path")
		}
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(output), "concat-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	listPath := filepath.Join(tempDir, "clips.txt")
	var list strings.Builder
	for _, clip := range clips {
		absolute, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path %q: %w", clip, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(absolute, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	return c.run(ctx, "concatenate",
		"-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", output,
	)
}

// LoopToDuration repeats the input clip until it covers the requested number
// of seconds.
func (c *Composer) LoopToDuration(ctx context.Context, input, output string, seconds float64) error {
	if seconds <= 0 {
		return errors.New("target duration must be positive")
	}
	return c.run(ctx, "loop",
		"-y", "-stream_loop", "-1", "-i", input,
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c", "copy", output,
	)
}

// OverlayCircular composites a circular-masked avatar clip onto the corner of
// a base video.
func (c *Composer) OverlayCircular(ctx context.Context, base, overlay, output string) error {
	filter := "[1:v]scale=320:320,format=rgba," +
		"geq=lum='lum(X,Y)':a='if(lte(sqrt(pow(X-160,2)+pow(Y-160,2)),160),255,0)'[ov];" +
		"[0:v][ov]overlay=W-w-40:H-h-40"
	return c.run(ctx, "overlay",
		"-y", "-i", base, "-i", overlay,
		"-filter_complex", filter,
		"-c:a", "copy", output,
	)
}

// MuxAudio replaces the audio track of a video with the given narration,
// copying the video stream and encoding audio as AAC. The result ends at the
// shorter of the two streams.
func (c *Composer) MuxAudio(ctx context.Context, video, audio, output string) error {
	return c.run(ctx, "mux",
		"-y", "-i", video, "-i", audio,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy", "-c:a", "aac",
		"-shortest", output,
	)
}

// Finalize repackages the input for streaming playback with the moov atom up
// front.
func (c *Composer) Finalize(ctx context.Context, input, output string) error {
	return c.run(ctx, "finalize",
		"-y", "-i", input,
		"-c", "copy", "-movflags", "+faststart",
		output,
	)
}

// Duration returns the container duration of a media file in seconds.
func (c *Composer) Duration(ctx context.Context, path string) (float64, error) {
	if err := c.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.release()

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := commandContext(runCtx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrCompose, "compose", "probe",
			"could not inspect media file", err)
	}
	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, services.Wrap(services.ErrCompose, "compose", "probe",
			"ffprobe returned unexpected output", err)
	}
	return duration, nil
}

func (c *Composer) run(ctx context.Context, operation string, args ...string) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("running ffmpeg",
		logging.String("operation", operation),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := commandContext(runCtx, c.ffmpeg, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "compose", operation,
				"ffmpeg "+operation+" timed out", runCtx.Err())
		}
		detail := tailOf(string(output), 400)
		return services.Wrap(services.ErrCompose, "compose", operation,
			"ffmpeg "+operation+" failed", fmt.Errorf("%w: %s", err, detail))
	}
	return nil
}

func (c *Composer) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Composer) release() {
	<-c.sem
}

func tailOf(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
