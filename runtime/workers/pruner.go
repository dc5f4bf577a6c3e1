package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-rooms/repositories"
)

// PrunerWorker deletes public messages older than the retention window.
// History endpoints therefore never serve stale content for long, even
// though expired rows may linger until the next tick.
type PrunerWorker struct {
	log       *slog.Logger
	messages  repositories.IMessageRepository
	interval  time.Duration
	retention time.Duration
}

func NewPrunerWorker(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	interval time.Duration,
	retention time.Duration,
) *PrunerWorker {
	return &PrunerWorker{
		log:       log,
		messages:  messages,
		interval:  interval,
		retention: retention,
	}
}

func (w *PrunerWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping message pruner")
			return nil
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-w.retention)
			pruned, err := w.messages.PruneBefore(cutoff)
			if err != nil {
				w.log.Error("Message prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				w.log.Info("Pruned expired messages", "count", pruned, "cutoff", cutoff)
			}
		}
	}
}
