package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusAnalyzing Status = "analyzing"
	StatusScripting Status = "scripting"
	StatusNarrating Status = "narrating"
	StatusRendering Status = "rendering"
	StatusComposing Status = "composing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// UserCancelReason is the error message set when a user cancels a job.
const UserCancelReason = "cancelled by user"

// DaemonStopReason is the error message set when jobs are failed during daemon shutdown.
const DaemonStopReason = "daemon stopped"

var allStatuses = []Status{
	StatusQueued,
	StatusAnalyzing,
	StatusScripting,
	StatusNarrating,
	StatusRendering,
	StatusComposing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusAnalyzing: {},
	StatusScripting: {},
	StatusNarrating: {},
	StatusRendering: {},
	StatusComposing: {},
}

// SourceKind identifies the type of source material a job is built from.
type SourceKind string

const (
	SourceRepository SourceKind = "repository"
	SourceWebsite    SourceKind = "website"
	SourceDocument   SourceKind = "document"
)

// ParseSourceKind converts a string into a known SourceKind.
func ParseSourceKind(value string) (SourceKind, bool) {
	normalized := SourceKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SourceRepository, SourceWebsite, SourceDocument:
		return normalized, true
	}
	return "", false
}

// RenderMode selects how the visual track is produced.
type RenderMode string

const (
	RenderAvatar        RenderMode = "avatar"
	RenderScreenRecord  RenderMode = "screen_recording"
	RenderCustomOverlay RenderMode = "custom_avatar_overlay"
)

// ParseRenderMode converts a string into a known RenderMode.
func ParseRenderMode(value string) (RenderMode, bool) {
	normalized := RenderMode(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case RenderAvatar, RenderScreenRecord, RenderCustomOverlay:
		return normalized, true
	}
	return "", false
}

// Options captures the generation parameters chosen at submission.
type Options struct {
	DurationMinutes int        `json:"duration_minutes"`
	AvatarStyle     string     `json:"avatar_style,omitempty"`
	VoiceStyle      string     `json:"voice_style,omitempty"`
	RenderMode      RenderMode `json:"render_mode"`
	Language        string     `json:"language,omitempty"`
	Style           string     `json:"style,omitempty"`
	Instructions    string     `json:"instructions,omitempty"`
}

// ValidDurations lists the supported target durations in minutes.
var ValidDurations = []int{5, 10, 15}

// Normalize fills option defaults and rejects unsupported values.
func (o *Options) Normalize() error {
	if o.DurationMinutes == 0 {
		o.DurationMinutes = 5
	}
	valid := false
	for _, d := range ValidDurations {
		if o.DurationMinutes == d {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("duration %d not supported, choose one of 5, 10, 15", o.DurationMinutes)
	}
	if o.RenderMode == "" {
		o.RenderMode = RenderAvatar
	}
	if _, ok := ParseRenderMode(string(o.RenderMode)); !ok {
		return fmt.Errorf("unknown render mode %q", o.RenderMode)
	}
	if o.Style == "" {
		o.Style = "tutorial"
	}
	switch o.Style {
	case "tutorial", "review", "quick_start":
	default:
		return fmt.Errorf("unknown style %q", o.Style)
	}
	return nil
}

// HealthSummary describes aggregated job counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Failed     int
	Completed  int
}

// Job represents a video-generation job persisted in SQLite.
type Job struct {
	ID              string
	SourceKind      SourceKind
	SourceRef       string
	CustomImage     string
	Options         Options
	Status          Status
	Progress        float64
	ProgressMessage string
	Degraded        bool
	Truncated       bool
	ScriptApproved  bool
	CancelRequested bool
	ContentJSON     string
	ScriptText      string
	AudioPath       string
	ClipPathsJSON   string
	ResultPath      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the job has reached a final state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// SetProgress updates the progress fields atomically.
func (j *Job) SetProgress(percent float64, message string) {
	j.Progress = percent
	j.ProgressMessage = message
}

// SetFailed marks the job as failed with the given error message. Any result
// path recorded by a partially completed compose is cleared so a failed job
// never points at an artifact.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressMessage = message
	j.ResultPath = ""
}

// ClipPaths decodes the rendered clip list.
func (j Job) ClipPaths() ([]string, error) {
	if strings.TrimSpace(j.ClipPathsJSON) == "" {
		return nil, nil
	}
	var paths []string
	if err := json.Unmarshal([]byte(j.ClipPathsJSON), &paths); err != nil {
		return nil, fmt.Errorf("decode clip paths: %w", err)
	}
	return paths, nil
}

// SetClipPaths encodes the rendered clip list.
func (j *Job) SetClipPaths(paths []string) error {
	if len(paths) == 0 {
		j.ClipPathsJSON = ""
		return nil
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("encode clip paths: %w", err)
	}
	j.ClipPathsJSON = string(data)
	return nil
}
