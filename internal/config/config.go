package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Script contains configuration for the script-generation LLM.
type Script struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech contains configuration for text-to-speech synthesis.
type Speech struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChars       int    `toml:"max_chars"`
}

// Avatar contains configuration for avatar clip rendering.
type Avatar struct {
	Provider             string `toml:"provider"`
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url"`
	PollIntervalSeconds  int    `toml:"poll_interval_seconds"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
	MaxClipChars         int    `toml:"max_clip_chars"`
	Chunking             bool   `toml:"chunking"`
}

// Recorder contains configuration for the external screen-recorder tool.
type Recorder struct {
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ScrollSpeed    string `toml:"scroll_speed"`
}

// Compose contains configuration for the media composition tool.
type Compose struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	MaxConcurrent  int    `toml:"max_concurrent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains configuration for pipeline timing and concurrency.
type Workflow struct {
	QueuePollInterval  int    `toml:"queue_poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	MaxConcurrentJobs  int    `toml:"max_concurrent_jobs"`
	StageRetryAttempts int    `toml:"stage_retry_attempts"`
	FallbackEnabled    bool   `toml:"fallback_enabled"`
	Language           string `toml:"language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and the API bind address
//   - Script: LLM connection for script generation
//   - Speech: text-to-speech vendor settings and narration ceiling
//   - Avatar: avatar render vendor, polling, and per-clip ceiling
//   - Recorder: external browser-recorder command
//   - Compose: ffmpeg/ffprobe binaries and composition limits
//   - Workflow: pipeline polling, concurrency, retry, and fallback policy
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Script   Script   `toml:"script"`
	Speech   Speech   `toml:"speech"`
	Avatar   Avatar   `toml:"avatar"`
	Recorder Recorder `toml:"recorder"`
	Compose  Compose  `toml:"compose"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path; the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.VideosDir(), c.UploadsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// VideosDir returns the directory holding per-job generated media.
func (c *Config) VideosDir() string {
	return filepath.Join(c.Paths.DataDir, "videos")
}

// UploadsDir returns the directory holding submitted source documents.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// JobDir returns the media directory for a single job. Each job writes only
// under its own directory, so no cross-job filesystem contention exists.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.VideosDir(), jobID)
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if v := strings.TrimSpace(c.Compose.FFmpegBinary); v != "" {
		return v
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	if v := strings.TrimSpace(c.Compose.FFprobeBinary); v != "" {
		return v
	}
	return "ffprobe"
}

// RecorderBinary returns the external screen-recorder command.
func (c *Config) RecorderBinary() string {
	if v := strings.TrimSpace(c.Recorder.Command); v != "" {
		return v
	}
	return "webrec"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
