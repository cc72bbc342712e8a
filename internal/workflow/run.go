package workflow

import (
	"context"
	"errors"
	"time"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
)

// Start begins background queue processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	for _, stg := range m.stages {
		if stg.handler == nil {
			m.mu.Unlock()
			return errors.New("workflow stages not configured")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// A worker slot is reserved before claiming so a job is never
		// pulled off the queue without capacity to run it.
		select {
		case <-ctx.Done():
			return
		case m.workers <- struct{}{}:
		}

		job, err := m.store.NextForStatuses(ctx, queue.StatusQueued)
		if err != nil {
			<-m.workers
			m.handleFetchError(ctx, err)
			continue
		}
		if job == nil {
			<-m.workers
			m.waitForJobOrShutdown(ctx)
			continue
		}

		// Claim synchronously so the next poll cannot pick the same job.
		if err := m.claim(ctx, job); err != nil {
			<-m.workers
			m.setLastError(err)
			m.logger.Error("failed to claim job", logging.Error(err))
			m.waitForJobOrShutdown(ctx)
			continue
		}

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() { <-m.workers }()
			m.processJob(ctx, job)
		}()
	}
}

func (m *Manager) handleFetchError(ctx context.Context, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	m.logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
