package registry

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/domain/schema"
	"vetml/internal/metrics"
	"vetml/internal/ml"
)

// Source records where an entry was loaded from
type Source struct {
	Dir            string
	ClassifierFile string
	SchemaFile     string
	FrequencyFile  string
	Bytes          int64
}

// Entry is everything needed to serve one species
type Entry struct {
	Species     diagnosis.Species
	Classifier  ml.Classifier
	Schema      *schema.Schema
	Frequencies schema.FrequencyTable
	Categorical []string
	Source      Source

	estimatorOnce sync.Once
	estimator     ml.Estimator
}

// NewEntry creates a registry entry
func NewEntry(species diagnosis.Species, c ml.Classifier, s *schema.Schema, freq schema.FrequencyTable, src Source) *Entry {
	return &Entry{
		Species:     species,
		Classifier:  c,
		Schema:      s,
		Frequencies: freq,
		Categorical: s.CategoricalNames(),
		Source:      src,
	}
}

// Estimator returns the terminal estimator, extracted on first use
func (e *Entry) Estimator() ml.Estimator {
	e.estimatorOnce.Do(func() {
		e.estimator = ml.ExtractEstimator(e.Classifier)
	})
	return e.estimator
}

// Registry is an immutable snapshot of loaded models
type Registry struct {
	entries   map[diagnosis.Species]*Entry
	supported []diagnosis.Species
	failed    []diagnosis.Species
	loadedAt  time.Time
}

// New builds a snapshot. Entries for species outside supported are kept
// out so lookups agree with IsSupported.
func New(supported []diagnosis.Species, entries []*Entry) *Registry {
	r := &Registry{
		entries:   make(map[diagnosis.Species]*Entry, len(entries)),
		supported: append([]diagnosis.Species(nil), supported...),
		loadedAt:  time.Now(),
	}
	for _, e := range entries {
		if r.IsSupported(e.Species) {
			r.entries[e.Species] = e
		}
	}
	return r
}

// NewPartial builds a snapshot that also records species whose artifacts
// are present but could not be decoded
func NewPartial(supported []diagnosis.Species, entries []*Entry, failed []diagnosis.Species) *Registry {
	r := New(supported, entries)
	for _, s := range failed {
		if _, ok := r.entries[s]; !ok && r.IsSupported(s) {
			r.failed = append(r.failed, s)
		}
	}
	sort.Slice(r.failed, func(i, j int) bool { return r.failed[i] < r.failed[j] })
	return r
}

// Get returns the entry for a species
func (r *Registry) Get(species diagnosis.Species) (*Entry, bool) {
	e, ok := r.entries[species]
	return e, ok
}

// Species returns registered species, sorted
func (r *Registry) Species() []diagnosis.Species {
	out := make([]diagnosis.Species, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Supported returns the static supported list in configured order
func (r *Registry) Supported() []diagnosis.Species {
	return append([]diagnosis.Species(nil), r.supported...)
}

// IsSupported checks the static supported list
func (r *Registry) IsSupported(species diagnosis.Species) bool {
	for _, s := range r.supported {
		if s == species {
			return true
		}
	}
	return false
}

// Len returns the number of registered species
func (r *Registry) Len() int {
	return len(r.entries)
}

// LoadedAt returns when the snapshot was built
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}

// Failed returns species whose artifacts exist but failed to load, sorted
func (r *Registry) Failed() []diagnosis.Species {
	return append([]diagnosis.Species(nil), r.failed...)
}

// Carry returns a snapshot serving prev's entry for every species that
// failed to load here, along with the species carried over. r is returned
// unchanged when nothing is carried.
func (r *Registry) Carry(prev *Registry) (*Registry, []diagnosis.Species) {
	if prev == nil || len(r.failed) == 0 {
		return r, nil
	}

	entries := make([]*Entry, 0, len(r.entries)+len(r.failed))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	var carried, failed []diagnosis.Species
	for _, s := range r.failed {
		if e, ok := prev.Get(s); ok {
			entries = append(entries, e)
			carried = append(carried, s)
			continue
		}
		failed = append(failed, s)
	}
	if len(carried) == 0 {
		return r, nil
	}

	out := New(r.supported, entries)
	out.failed = failed
	out.loadedAt = r.loadedAt
	return out, carried
}

// Close releases estimators holding native resources
func (r *Registry) Close() error {
	return r.CloseUnshared(nil)
}

// CloseUnshared releases estimators of entries that next does not serve.
// Entries carried into next stay open.
func (r *Registry) CloseUnshared(next *Registry) error {
	var firstErr error
	for species, e := range r.entries {
		if next != nil {
			if kept, ok := next.Get(species); ok && kept == e {
				continue
			}
		}
		if c, ok := e.Estimator().(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Holder publishes the current snapshot to concurrent readers
type Holder struct {
	current atomic.Pointer[Registry]
}

// NewHolder creates a holder with an initial snapshot
func NewHolder(r *Registry) *Holder {
	h := &Holder{}
	h.current.Store(r)
	return h
}

// Load returns the current snapshot
func (h *Holder) Load() *Registry {
	return h.current.Load()
}

// Swap publishes a new snapshot and returns the previous one.
// The previous snapshot stays valid for requests already holding it.
func (h *Holder) Swap(r *Registry) *Registry {
	return h.current.Swap(r)
}

// LoadedAt returns when the current snapshot was built
func (h *Holder) LoadedAt() time.Time {
	return h.Load().LoadedAt()
}

// ModelInfos describes the current snapshot for the metrics collector
func (h *Holder) ModelInfos() []metrics.ModelInfo {
	reg := h.Load()
	infos := make([]metrics.ModelInfo, 0, reg.Len())
	for _, species := range reg.Species() {
		e, _ := reg.Get(species)
		infos = append(infos, metrics.ModelInfo{
			Species:        species.String(),
			Features:       e.Schema.Len(),
			Classes:        len(e.Classifier.Classes()),
			Bytes:          e.Source.Bytes,
			HasFrequencies: e.Frequencies != nil,
		})
	}
	return infos
}

var _ metrics.ModelSource = (*Holder)(nil)
