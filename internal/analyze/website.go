package analyze

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"reelsmith/internal/queue"
	"reelsmith/internal/services"
	"reelsmith/internal/textutil"
)

// WebsiteClient fetches a page and reduces it to visible text.
type WebsiteClient struct {
	httpClient *http.Client
}

// NewWebsiteClient constructs a website fetcher.
func NewWebsiteClient(client *http.Client) *WebsiteClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebsiteClient{httpClient: client}
}

// Check verifies that the page answers at all. HEAD keeps the probe cheap;
// servers that reject HEAD outright still count as reachable.
func (c *WebsiteClient) Check(ctx context.Context, pageURL string) error {
	trimmed := strings.TrimSpace(pageURL)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check website",
			"website reference must be an http or https URL", fmt.Errorf("got %q", pageURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, trimmed, nil)
	if err != nil {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check website",
			"could not build website request", err)
	}
	req.Header.Set("User-Agent", "reelsmith/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrInvalidSource, "analyze", "check website",
			"could not reach website", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
		return nil
	default:
		return services.Wrap(services.ErrInvalidSource, "analyze", "check website",
			"website rejected the request", fmt.Errorf("http %d", resp.StatusCode))
	}
}

// Fetch downloads the page at url and extracts its title, meta description,
// and visible body text.
func (c *WebsiteClient) Fetch(ctx context.Context, pageURL string) (Content, error) {
	trimmed := strings.TrimSpace(pageURL)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "fetch website",
			"website reference must be an http or https URL", fmt.Errorf("got %q", pageURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "fetch website",
			"could not build website request", err)
	}
	req.Header.Set("User-Agent", "reelsmith/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Content{}, services.Wrap(services.ErrTransient, "analyze", "fetch website",
			"could not reach website", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Content{}, services.Wrap(services.ErrTransient, "analyze", "fetch website",
			"website returned a server error", fmt.Errorf("http %d", resp.StatusCode))
	default:
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "fetch website",
			"website rejected the request", fmt.Errorf("http %d", resp.StatusCode))
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Content{}, services.Wrap(services.ErrInvalidSource, "analyze", "parse website",
			"could not parse website HTML", err)
	}

	title, description, text := extractPage(doc)
	if title == "" {
		title = trimmed
	}
	body, truncated := textutil.Truncate(text, maxWebsiteChars)

	return Content{
		Kind:        queue.SourceWebsite,
		Title:       title,
		Description: description,
		Body:        body,
		URL:         trimmed,
		Truncated:   truncated,
	}, nil
}

var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "svg": {}, "head": {},
	"nav": {}, "footer": {}, "iframe": {},
}

func extractPage(root *html.Node) (title, description, text string) {
	var builder strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if _, skip := skipTags[n.Data]; skip && n.Data != "head" {
				return
			}
			if n.Data == "title" {
				if title == "" {
					title = strings.TrimSpace(textOf(n))
				}
				return
			}
			if n.Data == "meta" {
				if description == "" && attrValue(n, "name") == "description" {
					description = strings.TrimSpace(attrValue(n, "content"))
				}
				return
			}
			if n.Data == "head" {
				for child := n.FirstChild; child != nil; child = child.NextSibling {
					walk(child)
				}
				return
			}
		case html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				builder.WriteString(trimmed)
				builder.WriteByte('\n')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return title, description, strings.TrimSpace(builder.String())
}

func textOf(n *html.Node) string {
	var builder strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			builder.WriteString(child.Data)
		}
	}
	return builder.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
