package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// didPresenters maps the public avatar style names to hosted presenter
// images.
var didPresenters = map[string]string{
	"professional_male":   "https://d-id-public-bucket.s3.amazonaws.com/alice.jpg",
	"professional_female": "https://create-images-results.d-id.com/DefaultPresenters/Noelle_f/image.jpeg",
	"casual_male":         "https://create-images-results.d-id.com/DefaultPresenters/William_m/image.jpeg",
	"casual_female":       "https://create-images-results.d-id.com/DefaultPresenters/Emma_f/image.jpeg",
}

const defaultDIDPresenter = "professional_male"

// DID renders talking-head clips through the D-ID talks API. Unlike HeyGen it
// accepts an arbitrary presenter image, which is what backs the custom avatar
// overlay mode.
type DID struct {
	cfg        config.Avatar
	httpClient *http.Client
}

// NewDID constructs a D-ID renderer from configuration.
func NewDID(cfg config.Avatar, httpClient *http.Client) *DID {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" || strings.Contains(base, "heygen") {
		base = "https://api.d-id.com"
	}
	cfg.BaseURL = strings.TrimRight(base, "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &DID{cfg: cfg, httpClient: httpClient}
}

// Name identifies the vendor in logs and health output.
func (d *DID) Name() string { return "did" }

// Configured reports whether the renderer has credentials.
func (d *DID) Configured() bool { return d != nil && d.cfg.APIKey != "" }

// PresenterImage resolves an avatar style, or a custom image URL, to the
// source image handed to the vendor.
func PresenterImage(style, customImage string) string {
	if trimmed := strings.TrimSpace(customImage); trimmed != "" {
		return trimmed
	}
	normalized := strings.ToLower(strings.TrimSpace(style))
	if url, ok := didPresenters[normalized]; ok {
		return url
	}
	return didPresenters[defaultDIDPresenter]
}

// RenderClip submits a talk render and polls until the clip is ready, then
// downloads it to outputPath.
func (d *DID) RenderClip(ctx context.Context, req ClipRequest, outputPath string) error {
	if !d.Configured() {
		return services.Wrap(services.ErrConfiguration, "render", "did",
			"avatar rendering is not configured, set avatar.api_key", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("did: clip text required")
	}

	talkID, err := d.submit(ctx, req)
	if err != nil {
		return err
	}

	var resultURL string
	pollErr := poll(ctx,
		time.Duration(d.cfg.PollIntervalSeconds)*time.Second,
		time.Duration(d.cfg.RenderTimeoutSeconds)*time.Second,
		func(ctx context.Context) (bool, error) {
			status, url, statusErr := d.status(ctx, talkID)
			if statusErr != nil {
				return false, statusErr
			}
			switch status {
			case "done":
				resultURL = url
				return true, nil
			case "error", "rejected":
				return false, services.Wrap(services.ErrRender, "render", "did",
					"avatar vendor reported a failed render", nil)
			default:
				return false, nil
			}
		})
	if pollErr != nil {
		if errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, services.ErrRender) {
			return pollErr
		}
		return services.Wrap(services.ErrTransient, "render", "did",
			"avatar render polling failed", pollErr)
	}

	if err := download(ctx, d.httpClient, resultURL, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, "render", "did",
			"could not download finished clip", err)
	}
	return nil
}

type didTalkRequest struct {
	SourceURL string    `json:"source_url"`
	Script    didScript `json:"script"`
}

type didScript struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

func (d *DID) submit(ctx context.Context, req ClipRequest) (string, error) {
	payload := didTalkRequest{
		SourceURL: PresenterImage(req.AvatarStyle, req.ImageURL),
		Script:    didScript{Type: "text", Input: req.Text},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("did: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.cfg.BaseURL+"/talks", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("did: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(d.cfg.APIKey+":")))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "did",
			"could not reach avatar vendor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		marker := services.ErrRender
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "render", "did",
			fmt.Sprintf("avatar vendor rejected the render (http %d)", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("did: decode response: %w", err)
	}
	if decoded.ID == "" {
		return "", services.Wrap(services.ErrRender, "render", "did",
			"avatar vendor returned no talk id", nil)
	}
	return decoded.ID, nil
}

func (d *DID) status(ctx context.Context, talkID string) (string, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+"/talks/"+talkID, nil)
	if err != nil {
		return "", "", fmt.Errorf("did: build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(d.cfg.APIKey+":")))

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("did: status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("did: status http %d", resp.StatusCode)
	}

	var decoded struct {
		Status    string `json:"status"`
		ResultURL string `json:"result_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("did: decode status: %w", err)
	}
	return decoded.Status, decoded.ResultURL, nil
}

var _ Renderer = (*DID)(nil)
