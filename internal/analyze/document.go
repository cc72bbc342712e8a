package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/textutil"
)

// Supported document extensions. Binary formats are rejected up front.
var documentExtensions = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
}

func isDocumentPath(ref string) bool {
	_, ok := documentExtensions[strings.ToLower(filepath.Ext(ref))]
	return ok
}

// CheckDocument verifies that a document path points at a readable supported
// file without loading it.
func CheckDocument(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check document",
			"document path is empty", nil)
	}
	ext := strings.ToLower(filepath.Ext(trimmed))
	if _, ok := documentExtensions[ext]; !ok {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check document",
			fmt.Sprintf("unsupported document type %q, use .txt or .md", ext), nil)
	}
	if _, err := os.Stat(trimmed); err != nil {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check document",
			"document does not exist", err)
	}
	return nil
}

// ReadDocument loads a plain-text or markdown document from disk.
func ReadDocument(_ context.Context, path string) (Content, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "read document",
			"document path is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(trimmed))
	if _, ok := documentExtensions[ext]; !ok {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "read document",
			fmt.Sprintf("unsupported document type %q, use .txt or .md", ext), nil)
	}

	data, err := os.ReadFile(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "read document",
				"document does not exist", err)
		}
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "read document",
			"could not read document", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "read document",
			"document is empty", nil)
	}

	title := documentTitle(raw, trimmed)
	body, truncated := textutil.Truncate(raw, maxDocumentChars)

	return Content{
		Kind:      queue.SourceDocument,
		Title:     title,
		Body:      body,
		URL:       trimmed,
		Truncated: truncated,
	}, nil
}

// documentTitle prefers the first markdown heading, then the first line, then
// the file name.
func documentTitle(raw, path string) string {
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); heading != "" {
			if len(heading) > 120 {
				heading = heading[:120]
			}
			return heading
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
