package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if bind := strings.TrimSpace(c.Paths.APIBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			problems = append(problems, fmt.Sprintf("paths.api_bind %q is not host:port", bind))
		}
	}

	switch c.Avatar.Provider {
	case "heygen", "did":
	default:
		problems = append(problems, fmt.Sprintf("avatar.provider %q must be heygen or did", c.Avatar.Provider))
	}
	if c.Avatar.PollIntervalSeconds <= 0 {
		problems = append(problems, "avatar.poll_interval_seconds must be positive")
	}
	if c.Avatar.RenderTimeoutSeconds <= 0 {
		problems = append(problems, "avatar.render_timeout_seconds must be positive")
	}
	if c.Avatar.MaxClipChars <= 0 {
		problems = append(problems, "avatar.max_clip_chars must be positive")
	}

	if c.Speech.MaxChars <= 0 {
		problems = append(problems, "speech.max_chars must be positive")
	}
	if c.Speech.TimeoutSeconds <= 0 {
		problems = append(problems, "speech.timeout_seconds must be positive")
	}
	if c.Script.TimeoutSeconds <= 0 {
		problems = append(problems, "script.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.Script.Model) == "" {
		problems = append(problems, "script.model must not be empty")
	}

	if c.Compose.MaxConcurrent <= 0 {
		problems = append(problems, "compose.max_concurrent must be positive")
	}
	if c.Compose.TimeoutSeconds <= 0 {
		problems = append(problems, "compose.timeout_seconds must be positive")
	}
	if c.Recorder.TimeoutSeconds <= 0 {
		problems = append(problems, "recorder.timeout_seconds must be positive")
	}

	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		problems = append(problems, "workflow.error_retry_interval must be positive")
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		problems = append(problems, "workflow.max_concurrent_jobs must be positive")
	}
	if c.Workflow.StageRetryAttempts <= 0 {
		problems = append(problems, "workflow.stage_retry_attempts must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be json or console", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
