package render

import (
	"bytes"
	"context"
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

// heygenAvatars maps the public avatar style names to vendor avatar
// identifiers.
var heygenAvatars = map[string]string{
	"professional_male":   "Daniel-C-in-Suit-20230829",
	"professional_female": "Kayla-incasualsuit-20220818",
	"casual_male":         "Tyler-incasualsuit-20220721",
	"casual_female":       "Anna_public_3_20240108",
}

const defaultHeyGenAvatar = "professional_male"

// HeyGen renders avatar clips through the HeyGen v2 video API.
type HeyGen struct {
	cfg        config.Avatar
	httpClient *http.Client
}

// NewHeyGen constructs a HeyGen renderer from configuration.
func NewHeyGen(cfg config.Avatar, httpClient *http.Client) *HeyGen {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "https://api.heygen.com"
	}
	cfg.BaseURL = strings.TrimRight(base, "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &HeyGen{cfg: cfg, httpClient: httpClient}
}

// Name identifies the vendor in logs and health output.
func (h *HeyGen) Name() string { return "heygen" }

// Configured reports whether the renderer has credentials.
func (h *HeyGen) Configured() bool { return h != nil && h.cfg.APIKey != "" }

// AvatarID resolves an avatar style to the vendor identifier.
func AvatarID(style string) string {
	normalized := strings.ToLower(strings.TrimSpace(style))
	if id, ok := heygenAvatars[normalized]; ok {
		return id
	}
	return heygenAvatars[defaultHeyGenAvatar]
}

type heygenGenerateRequest struct {
	VideoInputs []heygenVideoInput `json:"video_inputs"`
	Dimension   heygenDimension    `json:"dimension"`
}

type heygenVideoInput struct {
	Character heygenCharacter `json:"character"`
	Voice     heygenVoice     `json:"voice"`
}

type heygenCharacter struct {
	Type     string `json:"type"`
	AvatarID string `json:"avatar_id"`
}

type heygenVoice struct {
	Type      string `json:"type"`
	InputText string `json:"input_text"`
	VoiceID   string `json:"voice_id,omitempty"`
}

type heygenDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RenderClip submits an avatar render and polls until the clip is ready, then
// downloads it to outputPath.
func (h *HeyGen) RenderClip(ctx context.Context, req ClipRequest, outputPath string) error {
	if !h.Configured() {
		return services.Wrap(services.ErrConfiguration, "render", "heygen",
			"avatar rendering is not configured, set avatar.api_key", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return errors.New("heygen: clip text required")
	}

	videoID, err := h.submit(ctx, req)
	if err != nil {
		return err
	}

	var videoURL string
	pollErr := poll(ctx,
		time.Duration(h.cfg.PollIntervalSeconds)*time.Second,
		time.Duration(h.cfg.RenderTimeoutSeconds)*time.Second,
		func(ctx context.Context) (bool, error) {
			status, url, statusErr := h.status(ctx, videoID)
			if statusErr != nil {
				return false, statusErr
			}
			switch status {
			case "completed":
				videoURL = url
				return true, nil
			case "failed":
				return false, services.Wrap(services.ErrRender, "render", "heygen",
					"avatar vendor reported a failed render", nil)
			default:
				return false, nil
			}
		})
	if pollErr != nil {
		if errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, services.ErrRender) {
			return pollErr
		}
		return services.Wrap(services.ErrTransient, "render", "heygen",
			"avatar render polling failed", pollErr)
	}

	if err := download(ctx, h.httpClient, videoURL, outputPath); err != nil {
		return services.Wrap(services.ErrTransient, "render", "heygen",
			"could not download finished clip", err)
	}
	return nil
}

func (h *HeyGen) submit(ctx context.Context, req ClipRequest) (string, error) {
	payload := heygenGenerateRequest{
		VideoInputs: []heygenVideoInput{{
			Character: heygenCharacter{Type: "avatar", AvatarID: AvatarID(req.AvatarStyle)},
			Voice:     heygenVoice{Type: "text", InputText: req.Text},
		}},
		Dimension: heygenDimension{Width: 1280, Height: 720},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("heygen: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		h.cfg.BaseURL+"/v2/video/generate", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("heygen: build request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", h.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "render", "heygen",
			"could not reach avatar vendor", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		marker := services.ErrRender
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			marker = services.ErrTransient
		}
		return "", services.Wrap(marker, "render", "heygen",
			fmt.Sprintf("avatar vendor rejected the render (http %d)", resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var decoded struct {
		Data struct {
			VideoID string `json:"video_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("heygen: decode response: %w", err)
	}
	if decoded.Data.VideoID == "" {
		return "", services.Wrap(services.ErrRender, "render", "heygen",
			"avatar vendor returned no video id", nil)
	}
	return decoded.Data.VideoID, nil
}

func (h *HeyGen) status(ctx context.Context, videoID string) (string, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.cfg.BaseURL+"/v1/video_status.get?video_id="+videoID, nil)
	if err != nil {
		return "", "", fmt.Errorf("heygen: build status request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", h.cfg.APIKey)

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return "", "", fmt.Errorf("heygen: status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("heygen: status http %d", resp.StatusCode)
	}

	var decoded struct {
		Data struct {
			Status   string `json:"status"`
			VideoURL string `json:"video_url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("heygen: decode status: %w", err)
	}
	return decoded.Data.Status, decoded.Data.VideoURL, nil
}

var _ Renderer = (*HeyGen)(nil)
