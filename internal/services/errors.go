package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSource marks a submission whose source cannot be classified
	// or reached. Client error, never retried.
	ErrInvalidSource = errors.New("invalid source")
	// ErrGeneration marks a script-generation vendor failure.
	ErrGeneration = errors.New("generation error")
	// ErrSynthesis marks a speech-synthesis vendor failure.
	ErrSynthesis = errors.New("synthesis error")
	// ErrRender marks an avatar-rendering vendor failure.
	ErrRender = errors.New("render error")
	// ErrRecord marks a screen-recording failure.
	ErrRecord = errors.New("record error")
	// ErrCompose marks a media-tool failure during final assembly.
	ErrCompose = errors.New("compose error")
	// ErrNotFound marks a lookup for an unknown job.
	ErrNotFound = errors.New("not found")
	// ErrNotReady marks a download request for an incomplete job.
	ErrNotReady = errors.New("not ready")
	// ErrTimeout marks an external call that exceeded its stage deadline.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks a missing or unusable configuration value.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures with no more specific classification.
	ErrTransient = errors.New("transient failure")
)

// StageError carries the classification marker and stage context for a
// failure. Message is the operator-facing summary; Cause keeps the raw
// vendor error for logs without leaking it into job records.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *StageError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Marker.Error(), detail, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Marker.Error(), detail)
}

// Unwrap exposes both the marker and the cause so errors.Is matches the
// sentinel and errors.As reaches the underlying failure.
func (e *StageError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Marker, e.Cause}
	}
	return []error{e.Marker}
}

// Wrap tags a failure with the provided marker and stage context. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StageError{Marker: marker, Stage: stage, Operation: operation, Message: message, Cause: err}
}

// Retryable reports whether an error class is worth retrying. Client and
// configuration errors are terminal; vendor and transient failures are not.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidSource),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNotReady):
		return false
	default:
		return true
	}
}

// FailureDetails describes the user-facing view of a stage error.
type FailureDetails struct {
	Message string
}

// Details reduces an error chain to a sanitized message safe to persist on a
// job record and surface to polling clients. When the chain carries a
// StageError, the message is its operator-facing summary alone; the marker
// prefix and raw cause stay in the logs. Vendor response bodies, credentials,
// and bearer tokens are stripped either way.
func Details(err error) FailureDetails {
	if err == nil {
		return FailureDetails{}
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) && strings.TrimSpace(stageErr.Message) != "" {
		return FailureDetails{Message: Sanitize(stageErr.Message)}
	}
	return FailureDetails{Message: Sanitize(err.Error())}
}

var (
	bodyPattern   = regexp.MustCompile(`(?is)\b(?:body|response)\s*[:=].*$`)
	bearerPattern = regexp.MustCompile(`(?i)\b(?:bearer|basic)\s+[A-Za-z0-9._~+/=-]+`)
	keyPattern    = regexp.MustCompile(`(?i)\b(api[_-]?key|token|authorization|secret)\b\s*[:=]\s*\S+`)
	longTokenRE   = regexp.MustCompile(`\b[A-Za-z0-9_-]{32,}\b`)
	urlCredsRE    = regexp.MustCompile(`(https?://)[^/\s:@]+:[^/\s@]+@`)
)

// Sanitize strips secrets and raw vendor payloads from a message. The result
// is a single trimmed line.
func Sanitize(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}
	message = bodyPattern.ReplaceAllString(message, "")
	message = bearerPattern.ReplaceAllString(message, "[redacted]")
	message = keyPattern.ReplaceAllString(message, "$1=[redacted]")
	message = urlCredsRE.ReplaceAllString(message, "$1")
	message = longTokenRE.ReplaceAllString(message, "[redacted]")
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		message = message[:idx]
	}
	message = strings.TrimRight(strings.TrimSpace(message), ":,;")
	if message == "" {
		return "stage failed"
	}
	return message
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
