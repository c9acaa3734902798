package bootstrap

import (
	"time"

	"vetml/internal/adapters/config"
	"vetml/internal/repository/memory"
	"vetml/internal/workers"
	"vetml/internal/workers/models"
	"vetml/internal/workers/reports"
	"vetml/pkg/logger"
)

const (
	// Replaced snapshots stay open this long for requests still using them
	snapshotRetireDelay = time.Minute
	reportSweepInterval = 5 * time.Minute
)

// provideWorkers initializes all background workers
func provideWorkers(cfg *config.Config, m *Models, memReports *memory.ReportRepository, log *logger.Logger) *workers.Scheduler {
	log.Info("Initializing workers...")

	scheduler := workers.NewScheduler()

	if m.Watcher != nil {
		scheduler.RegisterWorker(models.NewReloadWorker(
			m.Loader,
			m.Holder,
			m.Watcher,
			cfg.Models.ReloadInterval,
			snapshotRetireDelay,
			true,
		))
	}

	if memReports != nil {
		scheduler.RegisterWorker(reports.NewSweepWorker(memReports, reportSweepInterval, true))
	}

	log.Infow("✓ Workers initialized", "count", len(scheduler.GetWorkers()))
	return scheduler
}
