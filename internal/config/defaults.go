package config

import "strings"

// Default ceilings for narration and per-clip avatar text. The vendor APIs
// reject payloads above these sizes, so submissions are truncated and
// flagged rather than failed.
const (
	defaultSpeechMaxChars    = 5000
	defaultHeyGenClipChars   = 1500
	defaultDIDClipChars      = 500
	defaultPollInterval      = 2
	defaultRenderTimeout     = 300
	defaultComposeTimeout    = 120
	defaultRecorderTimeout   = 180
	defaultScriptTimeout     = 120
	defaultSpeechTimeout     = 60
	defaultQueuePollInterval = 5
	defaultErrorRetry        = 10
)

// ClipCharLimit returns the per-clip text ceiling for the given avatar
// provider. Load applies it when the operator leaves max_clip_chars unset.
func ClipCharLimit(provider string) int {
	if strings.ToLower(strings.TrimSpace(provider)) == "did" {
		return defaultDIDClipChars
	}
	return defaultHeyGenClipChars
}

// Default returns a Config populated with default values. Avatar.MaxClipChars
// stays zero here because its default depends on the provider; Load resolves
// it after overrides are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/reelsmith",
			LogDir:  "~/.local/share/reelsmith/logs",
			APIBind: "127.0.0.1:7489",
		},
		Script: Script{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "anthropic/claude-sonnet-4",
			TimeoutSeconds: defaultScriptTimeout,
		},
		Speech: Speech{
			BaseURL:        "https://api.elevenlabs.io/v1",
			ModelID:        "eleven_multilingual_v2",
			TimeoutSeconds: defaultSpeechTimeout,
			MaxChars:       defaultSpeechMaxChars,
		},
		Avatar: Avatar{
			Provider:             "heygen",
			BaseURL:              "https://api.heygen.com",
			PollIntervalSeconds:  defaultPollInterval,
			RenderTimeoutSeconds: defaultRenderTimeout,
			Chunking:             true,
		},
		Recorder: Recorder{
			Command:        "webrec",
			TimeoutSeconds: defaultRecorderTimeout,
			ScrollSpeed:    "medium",
		},
		Compose: Compose{
			FFmpegBinary:   "ffmpeg",
			FFprobeBinary:  "ffprobe",
			MaxConcurrent:  2,
			TimeoutSeconds: defaultComposeTimeout,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetry,
			MaxConcurrentJobs:  2,
			StageRetryAttempts: 3,
			FallbackEnabled:    true,
			Language:           "tr",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
