package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/textutil"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubClient reads repository metadata through the GitHub REST API.
type GitHubClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// GitHubOption customizes the client.
type GitHubOption func(*GitHubClient)

// WithGitHubBaseURL overrides the API endpoint, mainly for tests.
func WithGitHubBaseURL(baseURL string) GitHubOption {
	return func(c *GitHubClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithGitHubToken attaches a token for private repositories and higher rate
// limits.
func WithGitHubToken(token string) GitHubOption {
	return func(c *GitHubClient) {
		c.token = strings.TrimSpace(token)
	}
}

// WithGitHubHTTPClient overrides the default HTTP client.
func WithGitHubHTTPClient(client *http.Client) GitHubOption {
	return func(c *GitHubClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewGitHubClient constructs a GitHub API client.
func NewGitHubClient(opts ...GitHubOption) *GitHubClient {
	client := &GitHubClient{
		baseURL:    defaultGitHubAPI,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type repoResponse struct {
	FullName    string   `json:"full_name"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Topics      []string `json:"topics"`
	Stars       int      `json:"stargazers_count"`
	HTMLURL     string   `json:"html_url"`
}

// Fetch resolves a repository reference into content. The reference may be a
// full GitHub URL or a bare "owner/repo" slug.
func (c *GitHubClient) Fetch(ctx context.Context, ref string) (Content, error) {
	slug, err := repoSlug(ref)
	if err != nil {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "parse repository",
			"could not parse repository reference", err)
	}

	var repo repoResponse
	if err := c.getJSON(ctx, "/repos/"+slug, &repo); err != nil {
		return Content{}, err
	}

	readme, err := c.readme(ctx, slug)
	if err != nil {
		// A missing README is common; proceed with metadata only.
		readme = ""
	}

	body, truncated := textutil.Truncate(readme, maxDocumentChars)
	title := repo.FullName
	if title == "" {
		title = slug
	}

	return Content{
		Kind:        queue.SourceRepository,
		Title:       title,
		Description: strings.TrimSpace(repo.Description),
		Body:        body,
		Language:    repo.Language,
		Topics:      repo.Topics,
		Stars:       repo.Stars,
		URL:         repo.HTMLURL,
		Truncated:   truncated,
	}, nil
}

// Check verifies that the referenced repository exists and is accessible
// without pulling its README.
func (c *GitHubClient) Check(ctx context.Context, ref string) error {
	slug, err := repoSlug(ref)
	if err != nil {
		return services.Wrap(services.ErrInvalidSource, "analyze", "parse repository",
			"could not parse repository reference", err)
	}
	var repo struct{}
	return c.getJSON(ctx, "/repos/"+slug, &repo)
}

func (c *GitHubClient) readme(ctx context.Context, slug string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/repos/"+slug+"/readme", nil)
	if err != nil {
		return "", fmt.Errorf("build readme request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw+json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch readme: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("readme: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read readme: %w", err)
	}
	return string(data), nil
}

func (c *GitHubClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "analyze", "fetch repository",
			"could not reach GitHub", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrInvalidSource, "analyze", "fetch repository",
			"repository not found or not accessible", fmt.Errorf("http %d", resp.StatusCode))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return services.Wrap(services.ErrTransient, "analyze", "fetch repository",
			"GitHub returned a server error", fmt.Errorf("http %d", resp.StatusCode))
	default:
		return services.Wrap(services.ErrInvalidSource, "analyze", "fetch repository",
			"GitHub rejected the request", fmt.Errorf("http %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode repository response: %w", err)
	}
	return nil
}

func (c *GitHubClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func repoSlug(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", fmt.Errorf("empty reference")
	}

	if strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "github.com/") {
		if !strings.Contains(trimmed, "://") {
			trimmed = "https://" + trimmed
		}
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("parse url: %w", err)
		}
		trimmed = strings.Trim(parsed.Path, "/")
	}

	trimmed = strings.TrimSuffix(trimmed, ".git")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("reference %q is not owner/repo", ref)
	}
	return parts[0] + "/" + parts[1], nil
}
