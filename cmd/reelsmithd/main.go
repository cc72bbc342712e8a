package main

import (
	"context"
	"log"
	"os/signal"
	"strings"
	"syscall"

	"reelsmith/internal/config"
	"reelsmith/internal/daemon"
	"reelsmith/internal/deps"
	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
		logger.Warn("required tools are missing; composing will fall back to placeholders",
			logging.String("missing", strings.Join(missing, ", ")),
		)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	// Jobs left mid-stage by a previous run can never resume.
	if failed, err := store.FailStuckProcessing(ctx, queue.DaemonStopReason); err != nil {
		logger.Warn("failed to reset stuck jobs", logging.Error(err))
	} else if failed > 0 {
		logger.Info("failed stuck jobs from previous run", logging.Int64("count", failed))
	}

	manager := workflow.NewManager(cfg, store, logger, workflow.DefaultStages(cfg, logger))
	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("reelsmithd shutting down")
}
