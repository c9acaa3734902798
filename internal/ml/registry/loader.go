package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"vetml/internal/domain/diagnosis"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// Loader discovers per-species artifacts under a prioritized list of base directories
type Loader struct {
	dirs      []string
	supported []diagnosis.Species
	log       *logger.Logger
}

// NewLoader creates a loader. dirs are searched in order; the first
// directory holding both a classifier and a schema for a species wins.
func NewLoader(dirs []string, supported []diagnosis.Species, log *logger.Logger) *Loader {
	return &Loader{
		dirs:      dirs,
		supported: supported,
		log:       log.Component("model_loader"),
	}
}

// Dirs returns the candidate base directories
func (l *Loader) Dirs() []string {
	return l.dirs
}

// Load builds a fresh snapshot. Species without artifacts are logged and
// left out; only context cancellation fails the whole load.
func (l *Loader) Load(ctx context.Context) (*Registry, error) {
	var (
		mu      sync.Mutex
		entries []*Entry
		missing []diagnosis.Species
		failed  []diagnosis.Species
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, species := range l.supported {
		species := species
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := l.LoadSpecies(species)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				l.log.Warnw("Model not registered",
					"species", species,
					"error", err,
				)
				missing = append(missing, species)
				if l.hasArtifacts(species) {
					failed = append(failed, species)
				}
				return nil
			}
			entries = append(entries, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "load models")
	}

	reg := NewPartial(l.supported, entries, failed)
	l.log.Infow("Model registry loaded",
		"registered", reg.Species(),
		"missing", missing,
		"failed", reg.Failed(),
		"dirs", l.dirs,
	)
	return reg, nil
}

// hasArtifacts reports whether any candidate directory exists for a species,
// so a failed load can be told apart from a removed model
func (l *Loader) hasArtifacts(species diagnosis.Species) bool {
	for _, base := range l.dirs {
		if info, err := os.Stat(filepath.Join(base, species.String())); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// LoadSpecies loads one species. Returns ErrArtifactMissing when no candidate
// directory holds a decodable classifier and schema.
func (l *Loader) LoadSpecies(species diagnosis.Species) (*Entry, error) {
	var failed errors.MultiError

	for _, base := range l.dirs {
		dir := filepath.Join(base, species.String())

		classifier, classifierFile, classifierSize, err := firstDecodable(dir, classifierAttempts())
		if err != nil {
			failed.Add(err)
			continue
		}
		sch, schemaFile, schemaSize, err := firstDecodable(dir, schemaAttempts())
		if err != nil {
			failed.Add(err)
			continue
		}

		src := Source{
			Dir:            dir,
			ClassifierFile: classifierFile,
			SchemaFile:     schemaFile,
			Bytes:          classifierSize + schemaSize,
		}

		freq, freqFile, freqSize, err := firstDecodable(dir, frequencyAttempts())
		if err != nil {
			l.log.Infow("No frequency table, using fallback encoding",
				"species", species,
				"reason", err,
			)
			freq = nil
		} else {
			src.FrequencyFile = freqFile
			src.Bytes += freqSize
		}

		l.log.Infow("Model loaded",
			"species", species,
			"dir", dir,
			"classifier", classifierFile,
			"schema", schemaFile,
			"features", sch.Len(),
			"classes", len(classifier.Classes()),
			"size", humanize.Bytes(uint64(src.Bytes)),
		)
		return NewEntry(species, classifier, sch, freq, src), nil
	}

	if !failed.HasErrors() {
		return nil, errors.Wrapf(errors.ErrArtifactMissing, "%s: no candidate directories", species)
	}
	return nil, errors.Wrapf(errors.ErrArtifactMissing, "%s: %v", species, failed.Errors)
}
