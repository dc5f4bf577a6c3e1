package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-rooms/contract"
	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker logs process vitals and presence figures on a fixed
// interval. It is the server's own heartbeat in the logs.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	registry contract.IRegistry,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		registry:       registry,
		metricInterval: metricInterval,
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			mem, err := p.MemoryInfo()
			if err != nil {
				w.log.Error("Error while finding process memory usage", "err", err)
				continue
			}
			connections, rooms := w.registry.Stats()
			w.log.Info("Server health",
				"cpu_percent", cpu,
				"rss_bytes", mem.RSS,
				"connections", connections,
				"rooms", rooms,
			)
		}
	}
}
