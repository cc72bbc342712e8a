package api

import (
	"slices"
	"time"

	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:         job.ID,
		SourceKind: string(job.SourceKind),
		SourceRef:  job.SourceRef,
		Status:     string(job.Status),
		Progress: JobProgress{
			Percent: job.Progress,
			Message: job.ProgressMessage,
		},
		Options: JobOptions{
			DurationMinutes: job.Options.DurationMinutes,
			AvatarStyle:     job.Options.AvatarStyle,
			VoiceStyle:      job.Options.VoiceStyle,
			RenderMode:      string(job.Options.RenderMode),
			Language:        job.Options.Language,
			Style:           job.Options.Style,
			Instructions:    job.Options.Instructions,
		},
		Degraded:        job.Degraded,
		Truncated:       job.Truncated,
		ScriptApproved:  job.ScriptApproved,
		CancelRequested: job.CancelRequested,
		ErrorMessage:    job.ErrorMessage,
		ResultPath:      job.ResultPath,
	}
	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// ToOptions maps request options onto the queue model. Validation happens in
// queue.Options.Normalize when the job is created.
func ToOptions(opts JobOptions) queue.Options {
	return queue.Options{
		DurationMinutes: opts.DurationMinutes,
		AvatarStyle:     opts.AvatarStyle,
		VoiceStyle:      opts.VoiceStyle,
		RenderMode:      queue.RenderMode(opts.RenderMode),
		Language:        opts.Language,
		Style:           opts.Style,
		Instructions:    opts.Instructions,
	}
}

// FromStatusSummary converts a workflow status summary to its API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	names := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		names = append(names, name)
	}
	slices.Sort(names)

	health := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}

	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  stats,
		StageHealth: health,
		LastError:   summary.LastError,
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// ParseJobTime parses an API timestamp for display formatting.
func ParseJobTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(dateTimeFormat, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
