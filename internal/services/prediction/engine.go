package predictionservice

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/domain/schema"
	"vetml/internal/features"
	"vetml/internal/metrics"
	"vetml/internal/ml"
	"vetml/internal/ml/registry"
	"vetml/pkg/errors"
	"vetml/pkg/logger"
)

// DefaultTopN is the number of predictions returned when not configured
const DefaultTopN = 5

// SnapshotSource hands out the current registry snapshot
type SnapshotSource interface {
	Load() *registry.Registry
}

// Engine turns patient data into a ranked differential diagnosis.
// It tries the full classifier, then its terminal estimator, then a static
// heuristic, and never returns an inference error to the caller.
type Engine struct {
	models     SnapshotSource
	reconciler *features.Reconciler
	topN       int
	log        *logger.Logger
}

// NewEngine creates a new prediction engine
func NewEngine(models SnapshotSource, topN int, log *logger.Logger) *Engine {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{
		models:     models,
		reconciler: features.NewReconciler(log),
		topN:       topN,
		log:        log.Component("prediction_engine"),
	}
}

// Predict ranks diseases for a patient. The only errors are unsupported
// species and supported species with no registered model.
func (e *Engine) Predict(ctx context.Context, rawSpecies string, patientData map[string]interface{}) (*diagnosis.Result, error) {
	start := time.Now()
	species := diagnosis.NormalizeSpecies(rawSpecies)
	log := e.log.WithContext(ctx).With("species", species)

	reg := e.models.Load()
	if !reg.IsSupported(species) {
		metrics.RecordPrediction(species.String(), "unsupported", time.Since(start))
		return nil, errors.NewDomainError(errors.CodeUnsupportedSpecies,
			fmt.Sprintf("Species '%s' not supported. Supported species: %s", species, speciesList(reg.Supported())),
			errors.ErrUnsupportedSpecies)
	}

	entry, ok := reg.Get(species)
	if !ok {
		metrics.RecordPrediction(species.String(), "unregistered", time.Since(start))
		return nil, errors.NewDomainError(errors.CodeUnregisteredModel,
			fmt.Sprintf("Model for species '%s' is not available. Available models: %s", species, speciesList(reg.Species())),
			errors.ErrUnregisteredModel)
	}

	feats := features.Engineer(features.Normalize(patientData), entry.Frequencies)
	vec, _ := e.reconciler.Reconcile(species.String(), feats, entry.Schema)

	result := e.infer(log, entry, vec, feats)

	metrics.RecordTier(species.String(), result.Tier.String())
	metrics.RecordPrediction(species.String(), "success", time.Since(start))
	log.Debugw("Prediction served",
		"tier", result.Tier,
		"top", result.Predictions[0].Disease,
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Engine) infer(log *logger.Logger, entry *registry.Entry, vec *schema.Vector, feats features.Set) *diagnosis.Result {
	species := entry.Species

	probs, err := guard(func() ([]float64, error) {
		return entry.Classifier.PredictProba(ml.FrameFromVector(vec))
	})
	if err == nil {
		var preds []diagnosis.Prediction
		if preds, err = rank(entry.Classifier.Classes(), probs, e.topN); err == nil {
			return &diagnosis.Result{Species: species, Predictions: preds, Tier: diagnosis.TierComposite}
		}
	}
	log.Warnw("Composite inference failed, trying extracted estimator", "error", err)
	metrics.RecordInferenceFailure(species.String(), diagnosis.TierComposite.String())

	if est := entry.Estimator(); est != nil {
		probs, err = guard(func() ([]float64, error) {
			return est.PredictProba(estimatorInput(est, vec))
		})
		if err == nil {
			var preds []diagnosis.Prediction
			if preds, err = rank(est.Classes(), probs, e.topN); err == nil {
				return &diagnosis.Result{Species: species, Predictions: preds, Tier: diagnosis.TierEstimator}
			}
		}
	} else {
		err = errors.Wrap(errors.ErrInferenceFailed, "classifier has no terminal estimator")
	}
	log.Warnw("Estimator inference failed, using heuristic fallback", "error", err)
	metrics.RecordInferenceFailure(species.String(), diagnosis.TierEstimator.String())

	fever := feats[features.HasSymptom("fever")].Num > 0
	return &diagnosis.Result{
		Species:     species,
		Predictions: truncate(Heuristic(species, fever), e.topN),
		Tier:        diagnosis.TierHeuristic,
	}
}

// estimatorInput shapes the reconciled vector for a bare estimator.
// With declared feature names the row has exactly that length, filled by
// name from numeric columns and zero elsewhere. Without them only the
// numeric columns are passed, in schema order.
func estimatorInput(est ml.Estimator, vec *schema.Vector) []float64 {
	names, values := vec.Numeric()

	declared := est.FeatureNames()
	if declared == nil {
		return values
	}

	byName := make(map[string]float64, len(names))
	for i, n := range names {
		byName[n] = values[i]
	}
	x := make([]float64, len(declared))
	for i, n := range declared {
		x[i] = byName[n]
	}
	return x
}

// guard converts panics inside a model call into ErrInferenceFailed
func guard(fn func() ([]float64, error)) (probs []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs = nil
			err = errors.Wrapf(errors.ErrInferenceFailed, "panic: %v", r)
		}
	}()
	return fn()
}

// rank pairs labels with probabilities, validates them and keeps the top n.
// Ties are ordered by label so results are deterministic.
func rank(labels []string, probs []float64, n int) ([]diagnosis.Prediction, error) {
	if len(labels) == 0 {
		return nil, errors.Wrap(errors.ErrInferenceFailed, "no classes")
	}
	if len(probs) != len(labels) {
		return nil, errors.Wrapf(errors.ErrShapeMismatch, "%d probabilities for %d classes", len(probs), len(labels))
	}

	preds := make([]diagnosis.Prediction, len(labels))
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.Wrapf(errors.ErrInferenceFailed, "invalid probability %v for %q", p, labels[i])
		}
		preds[i] = diagnosis.Prediction{Disease: labels[i], Probability: math.Min(1, math.Max(0, p))}
	}

	sortPredictions(preds)
	return truncate(preds, n), nil
}

func sortPredictions(preds []diagnosis.Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		if preds[i].Probability != preds[j].Probability {
			return preds[i].Probability > preds[j].Probability
		}
		return preds[i].Disease < preds[j].Disease
	})
}

func truncate(preds []diagnosis.Prediction, n int) []diagnosis.Prediction {
	if len(preds) > n {
		return preds[:n]
	}
	return preds
}

func speciesList(species []diagnosis.Species) string {
	names := make([]string, len(species))
	for i, s := range species {
		names[i] = s.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
