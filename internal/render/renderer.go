package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ClipRequest describes one avatar clip to render.
type ClipRequest struct {
	Text        string
	AvatarStyle string
	VoiceStyle  string
	// ImageURL overrides the avatar with a custom presenter image where the
	// vendor supports it.
	ImageURL string
	Language string
}

// Renderer produces a single avatar clip and writes it to outputPath.
type Renderer interface {
	RenderClip(ctx context.Context, req ClipRequest, outputPath string) error
	Configured() bool
	Name() string
}

// download streams a finished render from the vendor CDN to disk.
func download(ctx context.Context, httpClient *http.Client, url, outputPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download clip: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create clip file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("write clip file: %w", err)
	}
	return nil
}

// poll invokes check on the interval until it reports done, errors, or the
// deadline passes.
func poll(ctx context.Context, interval, timeout time.Duration, check func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("render did not finish within %s", timeout)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
