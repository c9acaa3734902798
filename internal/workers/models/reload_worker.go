package models

import (
	"context"
	"time"

	"vetml/internal/metrics"
	"vetml/internal/ml/registry"
	"vetml/internal/workers"
)

// RegistryLoader builds a fresh registry snapshot
type RegistryLoader interface {
	Load(ctx context.Context) (*registry.Registry, error)
}

// ChangeSource reports whether artifacts changed since the last call
type ChangeSource interface {
	Dirty() bool
	MarkDirty()
}

// ReloadWorker rebuilds the model registry when the artifact tree changes
// and publishes the new snapshot atomically
type ReloadWorker struct {
	*workers.BaseWorker
	loader  RegistryLoader
	holder  *registry.Holder
	changes ChangeSource
	// retire is how long a replaced snapshot stays open for in-flight requests
	retire time.Duration
}

// NewReloadWorker creates a new reload worker
func NewReloadWorker(
	loader RegistryLoader,
	holder *registry.Holder,
	changes ChangeSource,
	interval time.Duration,
	retire time.Duration,
	enabled bool,
) *ReloadWorker {
	return &ReloadWorker{
		BaseWorker: workers.NewBaseWorker("model_reload", interval, enabled),
		loader:     loader,
		holder:     holder,
		changes:    changes,
		retire:     retire,
	}
}

// Run performs one reload check
func (w *ReloadWorker) Run(ctx context.Context) error {
	if !w.changes.Dirty() {
		return nil
	}
	return w.Reload(ctx)
}

// Reload loads and publishes a snapshot unconditionally.
// A reload that registers nothing keeps the current snapshot when it has models.
// Species whose artifacts are present but fail to load keep serving their
// current entry until a later reload decodes them.
func (w *ReloadWorker) Reload(ctx context.Context) error {
	start := time.Now()

	next, err := w.loader.Load(ctx)
	if err != nil {
		metrics.RecordRegistryReload(0, err)
		// try again on the next tick
		w.changes.MarkDirty()
		return err
	}

	current := w.holder.Load()
	next, carried := next.Carry(current)
	if len(carried) > 0 {
		w.Log().Warnw("Reload failed for some species, keeping their current models",
			"carried", carried,
		)
	}
	if next.Len() == 0 && current.Len() > 0 {
		w.Log().Warnw("Reload found no models, keeping current registry",
			"current", current.Species(),
		)
		metrics.RecordRegistryReload(current.Len(), nil)
		return nil
	}

	old := w.holder.Swap(next)
	metrics.RecordRegistryReload(next.Len(), nil)
	w.Log().Infow("Model registry reloaded",
		"registered", next.Species(),
		"previous", old.Species(),
		"duration", time.Since(start),
	)

	w.closeLater(old, next)
	return nil
}

func (w *ReloadWorker) closeLater(old, next *registry.Registry) {
	release := func() {
		if err := old.CloseUnshared(next); err != nil {
			w.Log().Warnw("Failed to release previous registry", "error", err)
		}
	}
	if w.retire <= 0 {
		release()
		return
	}
	time.AfterFunc(w.retire, release)
}

var _ workers.WorkerWithHealth = (*ReloadWorker)(nil)
