package reports

import (
	"context"
	"time"

	"vetml/internal/workers"
)

// Sweeper drops expired reports and reports how many it removed
type Sweeper interface {
	Sweep() int
	Len() int
}

// SweepWorker evicts expired reports from the in-process store.
// Expired entries are already invisible to readers; this only bounds memory.
type SweepWorker struct {
	*workers.BaseWorker
	store Sweeper
}

// NewSweepWorker creates a new sweep worker
func NewSweepWorker(store Sweeper, interval time.Duration, enabled bool) *SweepWorker {
	return &SweepWorker{
		BaseWorker: workers.NewBaseWorker("report_sweep", interval, enabled),
		store:      store,
	}
}

// Run performs one sweep
func (w *SweepWorker) Run(ctx context.Context) error {
	removed := w.store.Sweep()
	if removed > 0 {
		w.Log().Debugw("Expired reports evicted", "removed", removed, "remaining", w.store.Len())
	}
	return nil
}

var _ workers.WorkerWithHealth = (*SweepWorker)(nil)
