package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/integration-service/internal/config"
	"github.com/spec-kit/integration-service/internal/persistence"
	"github.com/spec-kit/integration-service/internal/service"
)

const batchLockName = "batch-reply-sync"

// SyncWorker periodically sweeps every syncable link and relays new thread
// replies. It is an external caller of the reply sync engine; a Redis leader
// lock keeps multiple instances from running the sweep concurrently.
type SyncWorker struct {
	engine   *service.ReplySyncEngine
	locks    *persistence.Redis
	logger   *zap.Logger
	interval time.Duration
}

// NewSyncWorker constructs the worker.
func NewSyncWorker(cfg config.SyncConfig, engine *service.ReplySyncEngine, locks *persistence.Redis, logger *zap.Logger) *SyncWorker {
	return &SyncWorker{
		engine:   engine,
		locks:    locks,
		logger:   logger,
		interval: cfg.BatchInterval(),
	}
}

// Run loops until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("batch sync worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("batch sync worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	held, err := w.locks.TryLock(ctx, batchLockName, w.interval)
	if err != nil {
		w.logger.Warn("batch sync lock unavailable, skipping sweep", zap.Error(err))
		return
	}
	if !held {
		w.logger.Debug("another instance holds the batch sync lock")
		return
	}
	defer func() {
		if err := w.locks.Unlock(ctx, batchLockName); err != nil {
			w.logger.Debug("batch sync unlock failed", zap.Error(err))
		}
	}()

	batch, err := w.engine.SyncAllLinkedTickets(ctx)
	if err != nil {
		w.logger.Error("batch reply sync failed", zap.Error(err))
		return
	}
	w.logger.Info("batch reply sync sweep finished",
		zap.Int("tickets_processed", batch.TicketsProcessed),
		zap.Int("tickets_failed", batch.TicketsFailed),
		zap.Int("synced", batch.SyncedCount))
}
