package narrate

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
)

// voiceIDs maps the public voice style names to vendor voice identifiers.
var voiceIDs = map[string]string{
	"professional_male":   "onwK4e9ZLuTAKqWW03F9",
	"professional_female": "EXAVITQu4vr4xnSDxMaL",
	"energetic_male":      "TX3LPaxmHKxFdv7VOQHJ",
	"energetic_female":    "jsCqWAovK2LkecY7zXl4",
	"calm_male":           "pNInz6obpgDQGcFmaJgB",
	"calm_female":         "XB0fDUnXU5powFXDhCwa",
}

const defaultVoiceStyle = "professional_male"

// VoiceID resolves a voice style to the vendor voice identifier.
func VoiceID(style string) string {
	normalized := strings.ToLower(strings.TrimSpace(style))
	if id, ok := voiceIDs[normalized]; ok {
		return id
	}
	return voiceIDs[defaultVoiceStyle]
}

// VoiceStyles returns the supported voice style names.
func VoiceStyles() []string {
	styles := make([]string, 0, len(voiceIDs))
	for style := range voiceIDs {
		styles = append(styles, style)
	}
	return styles
}

// Client wraps the ElevenLabs text-to-speech API.
type Client struct {
	cfg        config.Speech
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech client from configuration.
func NewClient(cfg config.Speech, opts ...Option) *Client {
	timeout := 60 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: config.Speech{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			ModelID:        strings.TrimSpace(cfg.ModelID),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxChars:       cfg.MaxChars,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if client.cfg.ModelID == "" {
		client.cfg.ModelID = "eleven_multilingual_v2"
	}
	return client
}

// Configured reports whether the client has credentials to call the API.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type synthesisRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings map[string]any `json:"voice_settings,omitempty"`
}

// Synthesize converts text to MP3 audio using the given voice style and
// returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, text, voiceStyle string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("synthesize: text required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("synthesize: api key required")
	}

	payload := synthesisRequest{
		Text:    text,
		ModelID: c.cfg.ModelID,
		VoiceSettings: map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("synthesize: encode body: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/text-to-speech/" + VoiceID(voiceStyle)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("synthesize: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synthesize: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("synthesize: empty audio response")
	}
	return audio, nil
}

type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("synthesize: http %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the status suggests a retry could succeed.
func (e *statusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
