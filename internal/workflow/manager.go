package workflow

import (
	"log/slog"
	"sync"
	"time"

	"reelsmith/internal/analyze"
	"reelsmith/internal/compose"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/narrate"
	"reelsmith/internal/queue"
	"reelsmith/internal/render"
	"reelsmith/internal/scriptgen"
	"reelsmith/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Analyze stage.Handler
	Script  stage.Handler
	Narrate stage.Handler
	Render  stage.Handler
	Compose stage.Handler
}

// DefaultStages wires the production stage handlers for the given config.
func DefaultStages(cfg *config.Config, logger *slog.Logger) StageSet {
	return StageSet{
		Analyze: analyze.NewHandler(cfg, logger),
		Script:  scriptgen.NewHandler(cfg, logger),
		Narrate: narrate.NewHandler(cfg, logger),
		Render:  render.NewHandler(cfg, logger),
		Compose: compose.NewHandler(cfg, logger),
	}
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	processingStatus queue.Status
	// progress reached once the stage completes
	progress float64
}

// Manager coordinates queue processing using the registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	stages       []pipelineStage
	pollInterval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  func()
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job

	workers chan struct{}
}

// NewManager constructs a workflow manager over the given stage set.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages StageSet) *Manager {
	maxJobs := cfg.Workflow.MaxConcurrentJobs
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
		stages: []pipelineStage{
			{name: "analyze", handler: stages.Analyze, processingStatus: queue.StatusAnalyzing, progress: 10},
			{name: "script", handler: stages.Script, processingStatus: queue.StatusScripting, progress: 25},
			{name: "narrate", handler: stages.Narrate, processingStatus: queue.StatusNarrating, progress: 45},
			{name: "render", handler: stages.Render, processingStatus: queue.StatusRendering, progress: 65},
			{name: "compose", handler: stages.Compose, processingStatus: queue.StatusComposing, progress: 85},
		},
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		workers:      make(chan struct{}, maxJobs),
	}
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copied := *job
		m.lastJob = &copied
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
