package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reelsmith/internal/api"
)

// apiClient talks to the daemon HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(addr, token string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		// Preview generation can take a while against slow LLM vendors.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *apiClient) Submit(ctx context.Context, req api.SubmitRequest) (*api.Job, error) {
	var out api.JobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *apiClient) SubmitWithScript(ctx context.Context, req api.SubmitWithScriptRequest) (*api.Job, error) {
	var out api.JobResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/with-script", req, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *apiClient) Preview(ctx context.Context, req api.PreviewRequest) (*api.PreviewResponse, error) {
	var out api.PreviewResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/preview-script", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) List(ctx context.Context, statuses []string) ([]api.Job, error) {
	path := "/api/jobs"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out api.JobListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *apiClient) Clear(ctx context.Context, scope string) (int64, error) {
	path := "/api/jobs"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	var out map[string]int64
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out["removed"], nil
}

func (c *apiClient) Describe(ctx context.Context, id string) (*api.Job, error) {
	var out api.JobResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (c *apiClient) Cancel(ctx context.Context, id string) (bool, error) {
	var out map[string]bool
	if err := c.doJSON(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(id)+"/cancel", nil, &out); err != nil {
		return false, err
	}
	return out["cancelled"], nil
}

func (c *apiClient) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download streams the finished video to destPath.
func (c *apiClient) Download(ctx context.Context, id, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"/api/jobs/"+url.PathEscape(id)+"/download", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return fmt.Errorf("create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), destPath)
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w (is reelsmithd running?)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func (c *apiClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeError(resp *http.Response) error {
	var payload api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s (%s)", payload.Error, resp.Status)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}
