// internal/app/system/workers/outboxretention.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OutboxPruner deletes outbox rows older than a cutoff.
type OutboxPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// OutboxRetention is a background worker that prunes delivered-or-abandoned
// notifications from the outbox.
type OutboxRetention struct {
	outbox    OutboxPruner
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewOutboxRetention creates a worker that every interval removes
// notifications older than retention.
func NewOutboxRetention(outbox OutboxPruner, logger *zap.Logger, interval, retention time.Duration) *OutboxRetention {
	return &OutboxRetention{
		outbox:    outbox,
		log:       logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *OutboxRetention) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("outbox retention worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OutboxRetention) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox retention worker stopped")
}

func (w *OutboxRetention) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Prune()
		}
	}
}

// Prune runs one retention pass.
func (w *OutboxRetention) Prune() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := w.now().UTC().Add(-w.retention)
	count, err := w.outbox.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to prune notification outbox", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("pruned notification outbox", zap.Int64("count", count), zap.Time("cutoff", cutoff))
	}
	return count
}
