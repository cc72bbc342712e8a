package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/services"
)

func (m *Manager) claim(ctx context.Context, job *queue.Job) error {
	first := m.stages[0]
	job.Status = first.processingStatus
	job.SetProgress(0, fmt.Sprintf("%s started", first.name))
	job.ErrorMessage = ""
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist claim: %w", err)
	}
	m.setLastJob(job)
	return nil
}

func (m *Manager) processJob(ctx context.Context, job *queue.Job) {
	requestID := uuid.NewString()
	jobCtx := services.WithRequestID(services.WithJobID(ctx, job.ID), requestID)
	logger := logging.WithContext(jobCtx, m.logger)

	logger.Info("job processing started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source_kind", string(job.SourceKind)),
		logging.String("source_ref", strings.TrimSpace(job.SourceRef)),
	)
	jobStart := time.Now()

	for i, stg := range m.stages {
		if ctx.Err() != nil {
			return
		}
		if cancelled, err := m.honorCancelRequest(jobCtx, logger, job); err != nil || cancelled {
			return
		}
		// The first stage is already in its processing status from claim.
		if i > 0 {
			job.Status = stg.processingStatus
			job.ProgressMessage = fmt.Sprintf("%s started", stg.name)
			if err := m.store.Update(jobCtx, job); err != nil {
				m.persistFailed(jobCtx, logger, err)
				return
			}
			m.setLastJob(job)
		}
		if err := m.executeStage(jobCtx, logger, stg, job); err != nil {
			return
		}
	}

	job.Status = queue.StatusCompleted
	job.SetProgress(100, "Completed")
	if err := m.store.Update(jobCtx, job); err != nil {
		m.persistFailed(jobCtx, logger, err)
		return
	}
	m.setLastJob(job)

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Bool("degraded", job.Degraded),
		logging.Bool("truncated", job.Truncated),
		logging.String("result", strings.TrimSpace(job.ResultPath)),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageCtx := services.WithStage(ctx, stg.name)
	stageLogger := logging.WithContext(stageCtx, logger)
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, stg.name),
	)

	if err := stg.handler.Prepare(stageCtx, job); err != nil {
		m.handleStageFailure(stageCtx, stageLogger, stg.name, job, err)
		return err
	}
	if err := m.store.Update(stageCtx, job); err != nil {
		m.persistFailed(stageCtx, stageLogger, err)
		return err
	}

	if err := stg.handler.Execute(stageCtx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.handleStageFailure(stageCtx, stageLogger, stg.name, job, err)
		return err
	}

	job.SetProgress(stg.progress, fmt.Sprintf("%s complete", stg.name))
	if err := m.store.Update(stageCtx, job); err != nil {
		m.persistFailed(stageCtx, stageLogger, err)
		return err
	}
	m.setLastJob(job)

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, stg.name),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// honorCancelRequest refreshes the persisted job and fails it when the user
// asked for cancellation while a stage was running.
func (m *Manager) honorCancelRequest(ctx context.Context, logger *slog.Logger, job *queue.Job) (bool, error) {
	stored, err := m.store.GetByID(ctx, job.ID)
	if err != nil {
		m.persistFailed(ctx, logger, err)
		return false, err
	}
	if stored == nil || !stored.CancelRequested {
		return false, nil
	}

	job.CancelRequested = true
	job.SetFailed(queue.UserCancelReason)
	if err := m.store.Update(ctx, job); err != nil {
		m.persistFailed(ctx, logger, err)
		return true, err
	}
	m.setLastJob(job)
	logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	return true, nil
}

func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stageName string, job *queue.Job, stageErr error) {
	message := classifyStageFailure(stageName, stageErr)
	job.SetFailed(message)

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastJob(job)
	m.setLastError(stageErr)
}

func (m *Manager) persistFailed(_ context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to persist job state", logging.Error(err))
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	message := services.Sanitize(services.Details(stageErr).Message)
	if message == "" {
		message = services.Sanitize(stageErr.Error())
	}
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}
