package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-rooms/contract"
	"chat-rooms/domain"
	"chat-rooms/domain/event"
	"github.com/samber/lo"
)

// SweeperWorker evicts connections that stayed silent for too long and
// announces their departure to the rooms they were in, exactly as if they
// had disconnected.
type SweeperWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	interval    time.Duration
	threshold   time.Duration
}

func NewSweeperWorker(
	log *slog.Logger,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	interval time.Duration,
	threshold time.Duration,
) *SweeperWorker {
	return &SweeperWorker{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		interval:    interval,
		threshold:   threshold,
	}
}

func (w *SweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping inactivity sweeper")
			return nil
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SweeperWorker) sweep(ctx context.Context) {
	evictions := w.registry.SweepInactive(w.threshold)
	if len(evictions) == 0 {
		return
	}
	w.log.Info("Swept inactive connections", "count", len(evictions))

	for _, eviction := range evictions {
		if eviction.Username == "" {
			continue
		}
		at := time.Now().UTC()
		for _, room := range eviction.Rooms {
			members := w.registry.MembersOf(room)
			w.broadcaster.BroadcastToRoom(ctx, room, event.MemberList{
				Room: room,
				Users: lo.Map(members, func(m domain.Member, _ int) event.MemberEntry {
					return event.MemberEntry{Username: m.Username, IsMod: m.IsMod}
				}),
				Count:     len(members),
				Timestamp: at,
			})

			w.broadcaster.BroadcastToRoom(ctx, room, event.UserLeft{
				Username: eviction.Username,
				Time:     at,
			})
		}
	}
}
