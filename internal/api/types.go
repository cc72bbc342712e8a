package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobOptions mirrors the user-facing generation options.
type JobOptions struct {
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	AvatarStyle     string `json:"avatarStyle,omitempty"`
	VoiceStyle      string `json:"voiceStyle,omitempty"`
	RenderMode      string `json:"renderMode,omitempty"`
	Language        string `json:"language,omitempty"`
	Style           string `json:"style,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
}

// JobProgress captures stage progress information for a job.
type JobProgress struct {
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID              string      `json:"id"`
	SourceKind      string      `json:"sourceKind"`
	SourceRef       string      `json:"sourceRef"`
	Status          string      `json:"status"`
	Progress        JobProgress `json:"progress"`
	Options         JobOptions  `json:"options"`
	Degraded        bool        `json:"degraded"`
	Truncated       bool        `json:"truncated"`
	ScriptApproved  bool        `json:"scriptApproved"`
	CancelRequested bool        `json:"cancelRequested,omitempty"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	ResultPath      string      `json:"resultPath,omitempty"`
	CreatedAt       string      `json:"createdAt,omitempty"`
	UpdatedAt       string      `json:"updatedAt,omitempty"`
}

// SubmitRequest is the payload for creating a new job.
type SubmitRequest struct {
	SourceRef   string     `json:"sourceRef"`
	CustomImage string     `json:"customImage,omitempty"`
	Options     JobOptions `json:"options"`
}

// SubmitWithScriptRequest creates a job that skips script generation.
type SubmitWithScriptRequest struct {
	SubmitRequest
	Script string `json:"script"`
}

// PreviewRequest asks for a script without queueing a job.
type PreviewRequest struct {
	SourceRef string     `json:"sourceRef"`
	Options   JobOptions `json:"options"`
}

// PreviewResponse carries a generated script back to the caller.
type PreviewResponse struct {
	Script    string `json:"script"`
	Degraded  bool   `json:"degraded"`
	WordCount int    `json:"wordCount"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatus summarizes pipeline execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Job           `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the uniform error payload for the HTTP API.
type ErrorResponse struct {
	Error string `json:"error"`
}
