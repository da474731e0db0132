// Package syncer drains the offline queue in the background.
package syncer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"detailinfra/internal/queue"
)

// Drainer replays queued writes. Both *queue.Queue and the classification
// service satisfy it.
type Drainer interface {
	Drain(ctx context.Context) (queue.DrainResult, error)
}

type Worker struct {
	drainer  Drainer
	interval time.Duration
	log      *zap.Logger
}

func New(d Drainer, interval time.Duration, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{drainer: d, interval: interval, log: log}
}

// Run drains once immediately and then on every tick until ctx is done.
// It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.drain(ctx)
	if w.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("sync worker stopped")
			return nil
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	res, err := w.drainer.Drain(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		w.log.Warn("queue drain failed", zap.Error(err))
		return
	}
	if res.Remaining > 0 {
		w.log.Debug("queue drain pass",
			zap.Int("succeeded", res.Succeeded),
			zap.Int("remaining", res.Remaining))
	}
}
