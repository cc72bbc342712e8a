package analyze

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"reelsmith/internal/queue"
)

// Content ceilings applied before handing material to the scripting stage.
const (
	maxWebsiteChars  = 5000
	maxDocumentChars = 10000
)

// Content is the structured summary of a job's source material.
type Content struct {
	Kind        queue.SourceKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Body        string           `json:"body,omitempty"`
	Language    string           `json:"language,omitempty"`
	Topics      []string         `json:"topics,omitempty"`
	Stars       int              `json:"stars,omitempty"`
	URL         string           `json:"url,omitempty"`
	Truncated   bool             `json:"truncated,omitempty"`
}

// Encode serializes the content for queue persistence.
func (c Content) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(data), nil
}

// DecodeContent deserializes content stored on a job.
func DecodeContent(raw string) (Content, error) {
	var content Content
	if strings.TrimSpace(raw) == "" {
		return content, fmt.Errorf("decode content: empty payload")
	}
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return content, fmt.Errorf("decode content: %w", err)
	}
	return content, nil
}

// repoSlugRE matches a bare owner/repo reference. Slugs with a document
// extension are treated as file paths instead.
var repoSlugRE = regexp.MustCompile(`^[a-z0-9_.-]+/[a-z0-9_.-]+$`)

// DetectKind infers the source kind from a raw reference.
func DetectKind(ref string) queue.SourceKind {
	trimmed := strings.TrimSpace(strings.ToLower(ref))
	switch {
	case strings.Contains(trimmed, "github.com/"):
		return queue.SourceRepository
	case strings.HasPrefix(trimmed, "http://"), strings.HasPrefix(trimmed, "https://"):
		return queue.SourceWebsite
	case repoSlugRE.MatchString(trimmed) && !isDocumentPath(trimmed):
		return queue.SourceRepository
	default:
		return queue.SourceDocument
	}
}
